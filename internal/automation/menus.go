package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// Logger is the progress sink of an automation. logging.Logger satisfies it.
type Logger interface {
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// CredentialFunc looks up portal credentials when a run starts.
type CredentialFunc func() (browser.Credentials, error)

// MenuConfig configures the menu-portal automation.
type MenuConfig struct {
	// AdminURL is the portal homepage; its navbar lists the menu tabs.
	AdminURL     string
	Credentials  CredentialFunc
	SettleDelay  time.Duration
	TabDelay     time.Duration
	SaveDelay    time.Duration
	TableTimeout time.Duration
	DryRun       bool
}

// MenuToggler moves every menu tab of the portal to a pricing mode.
type MenuToggler struct {
	cfg    MenuConfig
	engine *pricing.Engine
	open   browser.Opener
	log    Logger
}

func NewMenuToggler(cfg MenuConfig, engine *pricing.Engine, open browser.Opener, log Logger) *MenuToggler {
	return &MenuToggler{cfg: cfg, engine: engine, open: open, log: log}
}

// Run visits each tab in navbar order. A failing tab is recorded and the
// run moves on; only failures before the first tab abort the run.
func (m *MenuToggler) Run(ctx context.Context, mode pricing.Mode) (*Report, error) {
	report := newReport("menus", mode, m.cfg.DryRun)

	creds, err := m.cfg.Credentials()
	if err != nil {
		return report, fmt.Errorf("menu portal credentials: %w", err)
	}

	drv, err := m.open(ctx)
	if err != nil {
		return report, fmt.Errorf("open browser: %w", err)
	}
	defer drv.Close()

	page, err := drv.NewPage(ctx, browser.PageOptions{BasicAuth: &creds})
	if err != nil {
		return report, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, m.cfg.AdminURL); err != nil {
		return report, fmt.Errorf("authenticate to menu portal: %w", err)
	}
	m.log.Infof("Page loaded with basic authentication")

	doc, err := snapshot(ctx, page)
	if err != nil {
		return report, fmt.Errorf("read menu tabs: %w", err)
	}
	tabs, err := ParseTabLinks(doc, m.cfg.AdminURL)
	if err != nil {
		return report, err
	}
	if len(tabs) == 0 {
		m.log.Warnf("No menu tabs found on %s", m.cfg.AdminURL)
	}

	for i, tab := range tabs {
		if i > 0 {
			if err := sleep(ctx, m.cfg.TabDelay); err != nil {
				return report, err
			}
		}
		unit := m.processTab(ctx, page, tab, mode)
		report.add(unit)
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
	m.log.Infof("All tabs processed.")
	return report, nil
}

func (m *MenuToggler) processTab(ctx context.Context, page browser.Page, tab string, mode pricing.Mode) UnitResult {
	fail := func(err error) UnitResult {
		m.log.Errorf("Failed to process %s: %v", tab, err)
		return failedUnit(tab, err)
	}

	if err := page.Navigate(ctx, tab); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrUnitIO, err))
	}
	m.log.Infof("Navigated to %s", tab)
	if err := sleep(ctx, m.cfg.SettleDelay); err != nil {
		return fail(err)
	}

	if err := page.WaitReady(ctx, selMenuRows, m.cfg.TableTimeout); err != nil {
		return fail(fmt.Errorf("%w: menu table not found: %v", ErrUnitIO, err))
	}
	doc, err := snapshot(ctx, page)
	if err != nil {
		return fail(err)
	}
	rows := ParseMenuRows(doc)

	decision, err := m.engine.Decide(rows, mode, m.engine.Tab(tab))
	if err != nil {
		return fail(err)
	}
	if decision.AlreadyConverged {
		m.log.Infof("Pricing already set to %s. Skipping updates for %s.", mode, tab)
		return UnitResult{ID: tab, Status: StatusConverged}
	}

	unit := UnitResult{ID: tab, Status: StatusUpdated, Changes: decision.Changes}
	if m.cfg.DryRun {
		m.log.Infof("Dry run: %d price changes for %s not written", len(decision.Changes), tab)
		return unit
	}
	if err := m.writePrices(ctx, page, decision.Changes); err != nil {
		return fail(err)
	}
	m.log.Infof("Prices updated and saved for %s (%d changes).", tab, len(decision.Changes))
	return unit
}

// setPricesJS fills the price input of each row whose name input matches.
// It returns the number of inputs written.
const setPricesJS = `((prices) => {
	let written = 0;
	for (const row of document.querySelectorAll(%s)) {
		const name = row.querySelector("td:nth-child(1) input");
		const price = row.querySelector("td:nth-child(2) input");
		if (!name || !price) continue;
		const next = prices[name.value.trim()];
		if (next === undefined) continue;
		price.value = next;
		price.dispatchEvent(new Event("input", {bubbles: true}));
		price.dispatchEvent(new Event("change", {bubbles: true}));
		written++;
	}
	return written;
})(%s)`

func (m *MenuToggler) writePrices(ctx context.Context, page browser.Page, changes []pricing.Change) error {
	prices := make(map[string]string, len(changes))
	for _, c := range changes {
		prices[c.Name] = c.To
	}
	arg, err := jsonLiteral(prices)
	if err != nil {
		return err
	}

	var written int
	if err := page.Evaluate(ctx, fmt.Sprintf(setPricesJS, jsonString(selMenuRows), arg), &written); err != nil {
		return fmt.Errorf("%w: fill prices: %v", ErrUnitIO, err)
	}
	if written < len(prices) {
		m.log.Warnf("Only %d of %d changed prices had an editable input", written, len(prices))
	}
	if err := page.Click(ctx, selSaveMenu); err != nil {
		return fmt.Errorf("%w: save menu: %v", ErrUnitIO, err)
	}
	return sleep(ctx, m.cfg.SaveDelay)
}
