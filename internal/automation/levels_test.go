package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/pricelevel"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

const vendorBase = "https://vendors.test"

func newVendorSite() *fakeSite {
	s := newFakeSite()
	s.pages[vendorBase+"/login"] = `<html><body><form><input id="login"><input id="password" type="password"></form></body></html>`
	s.pages[vendorBase+"/vendors"] = `<html><body><input name="search_text"><table>
		<tr data-vendor-id="vendor-11"><td>JPJ Grill</td></tr>
		<tr data-vendor-id="vendor-12"><td>JPJ Bar</td></tr>
		<tr data-vendor-id="13"><td>JPJ Cart</td></tr>
		<tr data-vendor-id="none"><td>Header</td></tr>
	</table></body></html>`
	s.pages[vendorBase+"/vendors/edit/11"] = `<html><body><select id="activePriceLevelId"></select></body></html>`
	s.pages[vendorBase+"/vendors/edit/12"] = `<html><body><select id="activePriceLevelId"></select></body></html>`
	s.values[vendorBase+"/vendors/edit/11"] = "5430"
	s.values[vendorBase+"/vendors/edit/12"] = "8524"
	s.failNavigate[vendorBase+"/vendors/edit/13"] = true
	return s
}

func newLevelToggler(site *fakeSite, dryRun bool, log Logger) *LevelToggler {
	cfg := LevelConfig{
		BaseURL: vendorBase + "/",
		Credentials: func() (browser.Credentials, error) {
			return browser.Credentials{Username: "ops", Password: "secret"}, nil
		},
		SearchText:     "JPJ",
		Levels:         pricelevel.DefaultLevels(),
		CaptchaTimeout: time.Second,
		SearchTimeout:  time.Second,
		DryRun:         dryRun,
	}
	return NewLevelToggler(cfg, site.opener(), log)
}

func TestLevelTogglerToConcert(t *testing.T) {
	site := newVendorSite()
	log := &recordingLogger{}

	report, err := newLevelToggler(site, false, log).Run(context.Background(), pricing.Surge)
	require.NoError(t, err)

	assert.Equal(t, "ops", site.typed[selLogin])
	assert.Equal(t, "secret", site.typed[selPassword])
	assert.Equal(t, "JPJ", site.typed[selSearch])
	assert.Equal(t, []string{"Enter"}, site.pressed)
	assert.Equal(t, []string{selLoginSubmit}, site.clicks[vendorBase+"/login"])
	assert.Nil(t, site.pageOpts[0].BasicAuth)

	require.Len(t, report.Units, 3)
	assert.Equal(t, UnitResult{
		ID:      "11",
		Status:  StatusUpdated,
		Changes: []pricing.Change{{Name: "price level", From: "Default Price Level", To: "Concert Price Level"}},
	}, report.Units[0])
	assert.Equal(t, StatusConverged, report.Units[1].Status)
	assert.Equal(t, StatusFailed, report.Units[2].Status)
	assert.Contains(t, report.Units[2].Error, ErrUnitIO.Error())

	assert.Equal(t, map[string]string{vendorBase + "/vendors/edit/11": "8524"}, site.selections)
	assert.True(t, log.contains("Price level is already correct"))
}

func TestLevelTogglerDryRunSelectsNothing(t *testing.T) {
	site := newVendorSite()
	report, err := newLevelToggler(site, true, &recordingLogger{}).Run(context.Background(), pricing.Normal)
	require.NoError(t, err)

	assert.Empty(t, site.selections)
	assert.Equal(t, StatusConverged, report.Units[0].Status)
	assert.Equal(t, StatusUpdated, report.Units[1].Status)
}

func TestLevelTogglerSaveSelector(t *testing.T) {
	site := newVendorSite()
	l := newLevelToggler(site, false, &recordingLogger{})
	l.cfg.SaveSelector = "button.save"

	_, err := l.Run(context.Background(), pricing.Surge)
	require.NoError(t, err)
	assert.Equal(t, []string{"button.save"}, site.clicks[vendorBase+"/vendors/edit/11"])
	assert.Empty(t, site.clicks[vendorBase+"/vendors/edit/12"])
}

func TestLevelTogglerSearchTimeoutIsNotFatal(t *testing.T) {
	site := newVendorSite()
	site.failWait["innerText !=="] = errors.New("polling timeout")
	log := &recordingLogger{}

	report, err := newLevelToggler(site, false, log).Run(context.Background(), pricing.Surge)
	require.NoError(t, err)
	assert.Len(t, report.Units, 3)
	assert.True(t, log.contains("did not change"))
}

func TestLevelTogglerUnsolvedCaptchaAbortsRun(t *testing.T) {
	site := newVendorSite()
	site.failWait["g-recaptcha-response"] = errors.New("polling timeout")

	report, err := newLevelToggler(site, false, &recordingLogger{}).Run(context.Background(), pricing.Surge)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reCAPTCHA")
	assert.Empty(t, report.Units)
	assert.Empty(t, site.clicks)
}

func TestLevelTogglerNoVendors(t *testing.T) {
	site := newVendorSite()
	site.pages[vendorBase+"/vendors"] = `<html><body><input name="search_text"><table></table></body></html>`

	report, err := newLevelToggler(site, false, &recordingLogger{}).Run(context.Background(), pricing.Surge)
	require.NoError(t, err)
	assert.Empty(t, report.Units)
}
