package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/pricelevel"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// LevelConfig configures the vendor-portal automation.
type LevelConfig struct {
	// BaseURL is the portal origin, e.g. https://connect.appetizeapp.com.
	BaseURL        string
	Credentials    CredentialFunc
	SearchText     string
	Levels         pricelevel.Levels
	CaptchaTimeout time.Duration
	SearchTimeout  time.Duration
	// SaveSelector is clicked after a new level is selected. Empty means the
	// selection alone applies it.
	SaveSelector string
	DryRun       bool
}

// LevelToggler assigns the active price level of the matching vendors.
type LevelToggler struct {
	cfg  LevelConfig
	open browser.Opener
	log  Logger
}

func NewLevelToggler(cfg LevelConfig, open browser.Opener, log Logger) *LevelToggler {
	return &LevelToggler{cfg: cfg, open: open, log: log}
}

const captchaSolvedJS = `(() => {
	const r = document.querySelector(".g-recaptcha-response");
	return !r || r.value !== "";
})()`

const leftLoginJS = `!location.pathname.startsWith("/login")`

const tableTextJS = `(() => {
	const t = document.querySelector("table");
	return t ? t.innerText : "";
})()`

// Run logs in, narrows the vendor list with the search text and walks the
// vendors one by one.
func (l *LevelToggler) Run(ctx context.Context, mode pricing.Mode) (*Report, error) {
	report := newReport("levels", mode, l.cfg.DryRun)

	creds, err := l.cfg.Credentials()
	if err != nil {
		return report, fmt.Errorf("vendor portal credentials: %w", err)
	}

	drv, err := l.open(ctx)
	if err != nil {
		return report, fmt.Errorf("open browser: %w", err)
	}
	defer drv.Close()

	page, err := drv.NewPage(ctx, browser.PageOptions{})
	if err != nil {
		return report, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := l.login(ctx, page, creds); err != nil {
		return report, fmt.Errorf("log in to vendor portal: %w", err)
	}

	ids, err := l.findVendors(ctx, page)
	if err != nil {
		return report, err
	}
	l.log.Infof("Extracted vendor IDs: %v", ids)

	for _, id := range ids {
		report.add(l.processVendor(ctx, page, id, mode))
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
	l.log.Infof("All vendors updated.")
	return report, nil
}

func (l *LevelToggler) url(path string) string {
	return strings.TrimSuffix(l.cfg.BaseURL, "/") + path
}

func (l *LevelToggler) login(ctx context.Context, page browser.Page, creds browser.Credentials) error {
	if err := page.Navigate(ctx, l.url("/login")); err != nil {
		return err
	}
	if err := page.WaitVisible(ctx, selLogin, 0); err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}
	if err := page.Type(ctx, selLogin, creds.Username); err != nil {
		return err
	}
	if err := page.Type(ctx, selPassword, creds.Password); err != nil {
		return err
	}

	l.log.Infof("Waiting up to %s for the reCAPTCHA to be solved", l.cfg.CaptchaTimeout)
	if err := page.WaitFunction(ctx, captchaSolvedJS, l.cfg.CaptchaTimeout); err != nil {
		return fmt.Errorf("reCAPTCHA not solved: %w", err)
	}
	if err := page.Click(ctx, selLoginSubmit); err != nil {
		return err
	}
	if err := page.WaitFunction(ctx, leftLoginJS, 0); err != nil {
		return fmt.Errorf("still on the login page: %w", err)
	}
	l.log.Infof("Logged in to vendor portal")
	return nil
}

func (l *LevelToggler) findVendors(ctx context.Context, page browser.Page) ([]int, error) {
	if err := page.Navigate(ctx, l.url("/vendors")); err != nil {
		return nil, fmt.Errorf("open vendors page: %w", err)
	}
	if err := page.WaitVisible(ctx, selSearch, 0); err != nil {
		return nil, fmt.Errorf("vendor search not found: %w", err)
	}

	var before string
	if err := page.Evaluate(ctx, tableTextJS, &before); err != nil {
		return nil, fmt.Errorf("read vendor table: %w", err)
	}
	if err := page.Type(ctx, selSearch, l.cfg.SearchText); err != nil {
		return nil, fmt.Errorf("search vendors: %w", err)
	}
	if err := page.Press(ctx, "Enter"); err != nil {
		return nil, fmt.Errorf("search vendors: %w", err)
	}

	changed := fmt.Sprintf(`(() => {
		const t = document.querySelector("table");
		return !!t && t.innerText !== %s;
	})()`, jsonString(before))
	if err := page.WaitFunction(ctx, changed, l.cfg.SearchTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.log.Warnf("Vendor table did not change within %s after searching %q; using what is shown", l.cfg.SearchTimeout, l.cfg.SearchText)
	}

	if err := page.WaitReady(ctx, selVendorRows, l.cfg.SearchTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.log.Warnf("No vendors matched %q", l.cfg.SearchText)
		return []int{}, nil
	}
	doc, err := snapshot(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("read vendor table: %w", err)
	}
	return ParseVendorIDs(doc), nil
}

func (l *LevelToggler) processVendor(ctx context.Context, page browser.Page, id int, mode pricing.Mode) UnitResult {
	unitID := strconv.Itoa(id)
	fail := func(err error) UnitResult {
		l.log.Errorf("Error updating vendor %d price level: %v", id, err)
		return failedUnit(unitID, err)
	}
	ioErr := func(what string, err error) UnitResult {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(fmt.Errorf("%w: %s: %v", ErrUnitIO, what, err))
	}

	editURL := l.url(fmt.Sprintf("/vendors/edit/%d", id))
	if err := page.Navigate(ctx, editURL); err != nil {
		return ioErr("open vendor", err)
	}
	l.log.Infof("Navigated to %s", editURL)

	if err := page.WaitReady(ctx, selPriceLevel, 0); err != nil {
		return ioErr("price level dropdown", err)
	}
	current, err := page.Value(ctx, selPriceLevel)
	if err != nil {
		return ioErr("read price level", err)
	}
	l.log.Infof("Current price level value: %s", current)

	a := l.cfg.Levels.Assign(current, mode)
	if !a.Change {
		l.log.Infof("Price level is already correct. No changes needed.")
		return UnitResult{ID: unitID, Status: StatusConverged}
	}

	unit := UnitResult{
		ID:     unitID,
		Status: StatusUpdated,
		Changes: []pricing.Change{{
			Name: "price level",
			From: l.cfg.Levels.Name(a.Current),
			To:   l.cfg.Levels.Name(a.Target),
		}},
	}
	if l.cfg.DryRun {
		l.log.Infof("Dry run: would set vendor %d to %s", id, l.cfg.Levels.Name(a.Target))
		return unit
	}
	if err := page.Select(ctx, selPriceLevel, a.Target); err != nil {
		return ioErr("select price level", err)
	}
	if l.cfg.SaveSelector != "" {
		if err := page.Click(ctx, l.cfg.SaveSelector); err != nil {
			return ioErr("save vendor", err)
		}
	}
	l.log.Infof("Updated price level to %s", l.cfg.Levels.Name(a.Target))
	return unit
}
