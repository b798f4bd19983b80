package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

type chromeDriver struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
}

func newChromeDriver(ctx context.Context, cfg Config) (*chromeDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	exe, err := FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return nil, err
	}
	if exe != nil {
		opts = append(opts, chromedp.ExecPath(exe.Path))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &chromeDriver{allocCtx: allocCtx, cancel: cancel, timeout: cfg.Timeout}, nil
}

func (d *chromeDriver) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(d.allocCtx)
	p := &chromePage{tabCtx: tabCtx, cancel: cancel, timeout: d.timeout}

	// The first Run allocates the browser and ties its lifetime to the
	// context it is given, so it must run on tabCtx itself.
	actions := []chromedp.Action{}
	if opts.BasicAuth != nil {
		actions = append(actions,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": basicAuthHeader(*opts.BasicAuth)}),
		)
	}
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx, actions...)
	stop()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return p, nil
}

func (d *chromeDriver) Close() error {
	d.cancel()
	return nil
}

type chromePage struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.timeout
	}
	runCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, 0, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(ctx, 0, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

var namedKeys = map[string]string{
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Escape":    kb.Escape,
	"Backspace": kb.Backspace,
}

func (p *chromePage) Press(ctx context.Context, key string) error {
	if k, ok := namedKeys[key]; ok {
		key = k
	}
	return p.run(ctx, 0, chromedp.KeyEvent(key))
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, 0, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromePage) Select(ctx context.Context, selector, value string) error {
	var ok bool
	dispatch := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	})()`, jsString(selector))
	return p.run(ctx, 0,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
		chromedp.Evaluate(dispatch, &ok),
	)
}

func (p *chromePage) Value(ctx context.Context, selector string) (string, error) {
	var v string
	err := p.run(ctx, 0, chromedp.Value(selector, &v, chromedp.ByQuery))
	return v, err
}

func (p *chromePage) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := p.run(ctx, 0, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, 0, chromedp.Evaluate(expr, out))
}

func (p *chromePage) WaitFunction(ctx context.Context, expr string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.timeout
	}
	var ok bool
	// The run deadline sits past the polling timeout so Poll reports its own error.
	return p.run(ctx, timeout+time.Second,
		chromedp.Poll("!!("+expr+")", &ok,
			chromedp.WithPollingInterval(pollInterval),
			chromedp.WithPollingTimeout(timeout),
		),
	)
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
