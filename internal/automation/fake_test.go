package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
)

var errFake = errors.New("fake page failure")

// fakeSite is a scripted browser: every URL maps to fixed HTML and the page
// records what the automation did to it.
type fakeSite struct {
	mu sync.Mutex

	pages        map[string]string
	values       map[string]string // url -> #activePriceLevelId value
	failNavigate map[string]bool
	failWait     map[string]error // expression fragment -> error

	opened     int
	pageOpts   []browser.PageOptions
	visited    []string
	typed      map[string]string
	pressed    []string
	clicks     map[string][]string // url -> selectors
	written    map[string]map[string]string
	selections map[string]string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages:        map[string]string{},
		values:       map[string]string{},
		failNavigate: map[string]bool{},
		failWait:     map[string]error{},
		typed:        map[string]string{},
		clicks:       map[string][]string{},
		written:      map[string]map[string]string{},
		selections:   map[string]string{},
	}
}

func (s *fakeSite) opener() browser.Opener {
	return func(ctx context.Context) (browser.Driver, error) {
		s.mu.Lock()
		s.opened++
		s.mu.Unlock()
		return &fakeDriver{site: s}, nil
	}
}

type fakeDriver struct{ site *fakeSite }

func (d *fakeDriver) NewPage(ctx context.Context, opts browser.PageOptions) (browser.Page, error) {
	d.site.mu.Lock()
	d.site.pageOpts = append(d.site.pageOpts, opts)
	d.site.mu.Unlock()
	return &fakePage{site: d.site}, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakePage struct {
	site *fakeSite
	url  string
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	s := p.site
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = append(s.visited, url)
	if s.failNavigate[url] {
		return errFake
	}
	p.url = url
	return nil
}

func (p *fakePage) html() string {
	return p.site.pages[p.url]
}

func (p *fakePage) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	switch selector {
	case selMenuRows:
		if !strings.Contains(p.html(), "menuitem") {
			return errFake
		}
	case selVendorRows:
		if !strings.Contains(p.html(), "data-vendor-id") {
			return errFake
		}
	}
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (p *fakePage) Type(ctx context.Context, selector, text string) error {
	p.site.mu.Lock()
	p.site.typed[selector] += text
	p.site.mu.Unlock()
	return nil
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	p.site.mu.Lock()
	p.site.pressed = append(p.site.pressed, key)
	p.site.mu.Unlock()
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.site.mu.Lock()
	p.site.clicks[p.url] = append(p.site.clicks[p.url], selector)
	p.site.mu.Unlock()
	return nil
}

func (p *fakePage) Select(ctx context.Context, selector, value string) error {
	p.site.mu.Lock()
	p.site.selections[p.url] = value
	p.site.mu.Unlock()
	return nil
}

func (p *fakePage) Value(ctx context.Context, selector string) (string, error) {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	v, ok := p.site.values[p.url]
	if !ok {
		return "", errFake
	}
	return v, nil
}

func (p *fakePage) OuterHTML(ctx context.Context, selector string) (string, error) {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	return p.html(), nil
}

func (p *fakePage) Evaluate(ctx context.Context, expr string, out any) error {
	switch {
	case expr == mirrorValuesJS:
		return assign(out, true)
	case expr == tableTextJS:
		return assign(out, "all vendors")
	case strings.Contains(expr, "td:nth-child(2) input"):
		i := strings.LastIndex(expr, "})(")
		var prices map[string]string
		if err := json.Unmarshal([]byte(expr[i+3:len(expr)-1]), &prices); err != nil {
			return fmt.Errorf("bad price argument: %w", err)
		}
		p.site.mu.Lock()
		p.site.written[p.url] = prices
		p.site.mu.Unlock()
		return assign(out, len(prices))
	}
	return fmt.Errorf("unexpected script: %s", expr)
}

func (p *fakePage) WaitFunction(ctx context.Context, expr string, timeout time.Duration) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	for fragment, err := range p.site.failWait {
		if strings.Contains(expr, fragment) {
			return err
		}
	}
	return nil
}

func (p *fakePage) Close() error { return nil }

func assign(out any, v any) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, v ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
	l.mu.Unlock()
}

func (l *recordingLogger) Infof(format string, v ...any)  { l.add("INFO", format, v...) }
func (l *recordingLogger) Warnf(format string, v ...any)  { l.add("WARN", format, v...) }
func (l *recordingLogger) Errorf(format string, v ...any) { l.add("ERROR", format, v...) }

func (l *recordingLogger) contains(fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}
