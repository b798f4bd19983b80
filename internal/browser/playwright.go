package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	// Playwright instance (singleton)
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

// getPlaywright returns the singleton Playwright instance.
func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		// Install browsers if needed
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			pwErr = fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}

		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		pwInstance = pw
	})

	return pwInstance, pwErr
}

type playwrightDriver struct {
	browser playwright.Browser
	timeout time.Duration
}

func newPlaywrightDriver(cfg Config) (*playwrightDriver, error) {
	pw, err := getPlaywright()
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.NoSandbox {
		opts.ChromiumSandbox = playwright.Bool(false)
	}
	// Playwright ships its own Chromium; only an explicit path overrides it.
	if cfg.ExecutablePath != "" {
		exe, err := FindChromeExecutable(cfg.ExecutablePath)
		if err != nil {
			return nil, err
		}
		opts.ExecutablePath = playwright.String(exe.Path)
	}

	b, err := pw.Chromium.Launch(opts)
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &playwrightDriver{browser: b, timeout: cfg.Timeout}, nil
}

func (d *playwrightDriver) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.BasicAuth != nil {
		ctxOpts.HttpCredentials = &playwright.HttpCredentials{
			Username: opts.BasicAuth.Username,
			Password: opts.BasicAuth.Password,
		}
	}
	bctx, err := d.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &playwrightPage{bctx: bctx, page: page, timeout: d.timeout}, nil
}

func (d *playwrightDriver) Close() error {
	return d.browser.Close()
}

// playwrightPage adapts playwright's blocking calls to the Page interface.
// playwright-go has no context support, so ctx is checked before each call
// and the per-call timeout bounds the rest.
type playwrightPage struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

func (p *playwrightPage) ms(timeout time.Duration) *float64 {
	if timeout <= 0 {
		timeout = p.timeout
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   p.ms(0),
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) waitFor(ctx context.Context, selector string, state *playwright.WaitForSelectorState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: p.ms(timeout),
	})
}

func (p *playwrightPage) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return p.waitFor(ctx, selector, playwright.WaitForSelectorStateAttached, timeout)
}

func (p *playwrightPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return p.waitFor(ctx, selector, playwright.WaitForSelectorStateVisible, timeout)
}

func (p *playwrightPage) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Locator(selector).First().PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Timeout: p.ms(0),
	})
}

func (p *playwrightPage) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: p.ms(0),
	})
}

func (p *playwrightPage) Select(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values := []string{value}
	_, err := p.page.Locator(selector).First().SelectOption(playwright.SelectOptionValues{Values: &values}, playwright.LocatorSelectOptionOptions{
		Timeout: p.ms(0),
	})
	return err
}

func (p *playwrightPage) Value(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Locator(selector).First().InputValue(playwright.LocatorInputValueOptions{
		Timeout: p.ms(0),
	})
}

func (p *playwrightPage) OuterHTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := p.page.Locator(selector).First().Evaluate("el => el.outerHTML", nil, playwright.LocatorEvaluateOptions{
		Timeout: p.ms(0),
	})
	if err != nil {
		return "", err
	}
	html, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("outerHTML of %s: unexpected %T", selector, v)
	}
	return html, nil
}

func (p *playwrightPage) Evaluate(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := p.page.Evaluate(expr)
	if err != nil {
		return err
	}
	return decodeInto(v, out)
}

func (p *playwrightPage) WaitFunction(ctx context.Context, expr string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.WaitForFunction(expr, nil, playwright.PageWaitForFunctionOptions{
		Polling: playwright.Float(float64(pollInterval.Milliseconds())),
		Timeout: p.ms(timeout),
	})
	return err
}

func (p *playwrightPage) Close() error {
	if err := p.page.Close(); err != nil {
		return err
	}
	return p.bctx.Close()
}
