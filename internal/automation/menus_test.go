package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

const adminURL = "https://menus.test/admin/#"

func menuHTML(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="menuitems">`)
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr class="menuitem"><td><input value="%s"></td><td><input value="%s"></td><td>120</td></tr>`, r[0], r[1])
	}
	b.WriteString(`</table><button title="Save Menu">Save</button></body></html>`)
	return b.String()
}

func newMenuSite() *fakeSite {
	s := newFakeSite()
	s.pages[adminURL] = `<html><body><div id="navbar">
		<a href="#">Home</a>
		<a href="https://menus.test/admin/#">Home</a>
		<a href="/admin/#grill">Grill</a>
		<a href="/admin/#Ben-Jerrys">Ben &amp; Jerry's</a>
		<a href="/admin/#bar">Bar</a>
		<a href="/admin/#broken">Broken</a>
		<a href="/admin/#grill">Grill again</a>
	</div></body></html>`
	s.pages["https://menus.test/admin/#grill"] = menuHTML(
		[2]string{"Bottled Water", "$3.99"},
		[2]string{"Hot Dog", "$6.00"},
		[2]string{"Hubs Peanuts", "$1.99"},
		[2]string{"Domestic Can 16oz", "$10.00"},
	)
	s.pages["https://menus.test/admin/#Ben-Jerrys"] = menuHTML(
		[2]string{"Bottled Water", "$3.99"},
		[2]string{"Cone", "$5.00"},
		[2]string{"Soda", "$4.50"},
	)
	s.pages["https://menus.test/admin/#bar"] = menuHTML(
		[2]string{"Bottled Water", "$4.99"},
		[2]string{"Premium Wine 5oz", "$12.99"},
	)
	s.failNavigate["https://menus.test/admin/#broken"] = true
	return s
}

func newMenuToggler(t *testing.T, site *fakeSite, dryRun bool, log Logger) *MenuToggler {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.DefaultRules())
	require.NoError(t, err)
	cfg := MenuConfig{
		AdminURL: adminURL,
		Credentials: func() (browser.Credentials, error) {
			return browser.Credentials{Username: "ops", Password: "secret"}, nil
		},
		DryRun: dryRun,
	}
	return NewMenuToggler(cfg, engine, site.opener(), log)
}

func TestMenuTogglerToSurge(t *testing.T) {
	site := newMenuSite()
	log := &recordingLogger{}

	report, err := newMenuToggler(t, site, false, log).Run(context.Background(), pricing.Surge)
	require.NoError(t, err)

	require.Len(t, site.pageOpts, 1)
	require.NotNil(t, site.pageOpts[0].BasicAuth)
	assert.Equal(t, "ops", site.pageOpts[0].BasicAuth.Username)

	statuses := map[string]UnitStatus{}
	for _, u := range report.Units {
		statuses[u.ID] = u.Status
	}
	assert.Equal(t, map[string]UnitStatus{
		"https://menus.test/admin/#grill":      StatusUpdated,
		"https://menus.test/admin/#Ben-Jerrys": StatusUpdated,
		"https://menus.test/admin/#bar":        StatusConverged,
		"https://menus.test/admin/#broken":     StatusFailed,
	}, statuses)
	assert.Equal(t, "https://menus.test/admin/#grill", report.Units[0].ID)

	assert.Equal(t, map[string]string{
		"Bottled Water":     "$4.99",
		"Hot Dog":           "$7.00",
		"Hubs Peanuts":      "$0.99",
		"Domestic Can 16oz": "$12.00",
	}, site.written["https://menus.test/admin/#grill"])
	assert.Equal(t, map[string]string{
		"Bottled Water": "$4.99",
		"Soda":          "$5.50",
	}, site.written["https://menus.test/admin/#Ben-Jerrys"])

	assert.Equal(t, []string{selSaveMenu}, site.clicks["https://menus.test/admin/#grill"])
	assert.Equal(t, []string{selSaveMenu}, site.clicks["https://menus.test/admin/#Ben-Jerrys"])
	assert.Empty(t, site.clicks["https://menus.test/admin/#bar"])
	assert.NotContains(t, site.written, "https://menus.test/admin/#bar")

	updated, converged, failed := report.Counts()
	assert.Equal(t, [3]int{2, 1, 1}, [3]int{updated, converged, failed})
	assert.True(t, log.contains("Failed to process https://menus.test/admin/#broken"))
	assert.True(t, log.contains("All tabs processed."))
}

func TestMenuTogglerDryRunWritesNothing(t *testing.T) {
	site := newMenuSite()
	report, err := newMenuToggler(t, site, true, &recordingLogger{}).Run(context.Background(), pricing.Surge)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Empty(t, site.written)
	assert.Empty(t, site.clicks)
	for _, u := range report.Units {
		if u.ID == "https://menus.test/admin/#grill" {
			assert.Equal(t, StatusUpdated, u.Status)
			assert.Len(t, u.Changes, 4)
		}
	}
}

func TestMenuTogglerMissingReferenceFailsOnlyThatTab(t *testing.T) {
	site := newMenuSite()
	site.pages["https://menus.test/admin/#bar"] = menuHTML([2]string{"Nachos", "$8.00"})

	report, err := newMenuToggler(t, site, false, &recordingLogger{}).Run(context.Background(), pricing.Normal)
	require.NoError(t, err)

	for _, u := range report.Units {
		if u.ID == "https://menus.test/admin/#bar" {
			assert.Equal(t, StatusFailed, u.Status)
			assert.Contains(t, u.Error, "reference item")
		}
		if u.ID == "https://menus.test/admin/#grill" {
			assert.Equal(t, StatusConverged, u.Status)
		}
	}
}

func TestMenuTogglerCredentialErrorAbortsBeforeBrowser(t *testing.T) {
	site := newMenuSite()
	m := newMenuToggler(t, site, false, &recordingLogger{})
	m.cfg.Credentials = func() (browser.Credentials, error) { return browser.Credentials{}, errors.New("no credentials") }

	_, err := m.Run(context.Background(), pricing.Surge)
	require.Error(t, err)
	assert.Equal(t, 0, site.opened)
}

func TestMenuTogglerAuthFailureAbortsRun(t *testing.T) {
	site := newMenuSite()
	site.failNavigate[adminURL] = true

	report, err := newMenuToggler(t, site, false, &recordingLogger{}).Run(context.Background(), pricing.Surge)
	require.Error(t, err)
	assert.Empty(t, report.Units)
}

func TestMenuTogglerStopsOnCancel(t *testing.T) {
	site := newMenuSite()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newMenuToggler(t, site, false, &recordingLogger{}).Run(ctx, pricing.Surge)
	assert.ErrorIs(t, err, context.Canceled)
}
