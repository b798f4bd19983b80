// Package pricing decides how a menu tab's prices move when concert (surge)
// pricing is switched on or off.
package pricing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Mode is the pricing mode a run moves a menu towards.
type Mode int

const (
	Normal Mode = iota
	Surge
)

// ModeFor maps the trigger's setToConcert flag to a Mode.
func ModeFor(setToConcert bool) Mode {
	if setToConcert {
		return Surge
	}
	return Normal
}

func (m Mode) String() string {
	if m == Surge {
		return "surge"
	}
	return "normal"
}

// ParseMode accepts "surge" (or "concert") and "normal" (or "default").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "surge", "concert":
		return Surge, nil
	case "normal", "default":
		return Normal, nil
	}
	return Normal, fmt.Errorf("unknown pricing mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MenuRow is one line item scraped from a menu tab.
type MenuRow struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Calories string `json:"calories"`
}

// TabContext describes the admin page a row set came from.
type TabContext struct {
	Identity        string `json:"identity"`
	SpecialCategory bool   `json:"specialCategory"`
}

// Change records a single price rewrite.
type Change struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Decision is the outcome of Decide for one tab.
type Decision struct {
	// AlreadyConverged is true when the tab is already in the target mode.
	// Nothing may be written back in that case.
	AlreadyConverged bool
	CurrentlySurge   bool
	ReferencePrice   decimal.Decimal
	Rows             []MenuRow
	Changes          []Change
}

// Engine applies a Rules policy to scraped rows. It is safe for concurrent
// use; SetRules swaps the policy between runs.
type Engine struct {
	mu    sync.RWMutex
	rules Rules
	large map[string]struct{}
}

// NewEngine validates r and returns an engine for it.
func NewEngine(r Rules) (*Engine, error) {
	e := &Engine{}
	if err := e.SetRules(r); err != nil {
		return nil, err
	}
	return e, nil
}

// SetRules replaces the policy. Invalid rules leave the current policy in place.
func (e *Engine) SetRules(r Rules) error {
	if err := r.Validate(); err != nil {
		return err
	}
	large := make(map[string]struct{}, len(r.DoubleStep))
	for _, name := range r.DoubleStep {
		large[name] = struct{}{}
	}

	e.mu.Lock()
	e.rules = r
	e.large = large
	e.mu.Unlock()
	return nil
}

// Rules returns the active policy.
func (e *Engine) Rules() Rules {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// Tab classifies a tab identity (usually its URL).
func (e *Engine) Tab(identity string) TabContext {
	e.mu.RLock()
	marker := e.rules.SpecialCategoryMarker
	e.mu.RUnlock()

	return TabContext{
		Identity:        identity,
		SpecialCategory: marker != "" && strings.Contains(identity, marker),
	}
}

// Decide checks whether rows already match mode and, if not, returns the
// rows with their new prices. The input slice is never modified.
func (e *Engine) Decide(rows []MenuRow, mode Mode, tab TabContext) (*Decision, error) {
	e.mu.RLock()
	rules, large := e.rules, e.large
	e.mu.RUnlock()

	ref, err := referencePrice(rows, rules.ReferenceItem)
	if err != nil {
		return nil, err
	}

	currentlySurge := ref.Equal(rules.SurgeReferencePrice)
	d := &Decision{
		AlreadyConverged: (mode == Surge) == currentlySurge,
		CurrentlySurge:   currentlySurge,
		ReferencePrice:   ref,
	}
	if d.AlreadyConverged {
		d.Rows = append([]MenuRow(nil), rows...)
		return d, nil
	}

	step, largeStep := rules.Step, rules.LargeStep
	if currentlySurge {
		step, largeStep = step.Neg(), largeStep.Neg()
	}

	d.Rows = make([]MenuRow, len(rows))
	for i, row := range rows {
		d.Rows[i] = row
		if row.Price == "" {
			continue
		}

		next, ok := "", false
		if pinned, isPinned := rules.Pinned[row.Name]; isPinned {
			next, ok = pinned, true
		} else if old, perr := ParsePrice(row.Price); perr == nil {
			var delta decimal.Decimal
			switch _, isLarge := large[row.Name]; {
			case isLarge:
				delta, ok = largeStep, true
			case tab.SpecialCategory:
				delta, ok = step, containsAny(row.Name, rules.CategoryMarkers)
			default:
				delta, ok = step, true
			}
			if ok {
				next = FormatPrice(old.Add(delta), currencyPrefix(row.Price))
			}
		}

		if ok && next != row.Price {
			d.Rows[i].Price = next
			d.Changes = append(d.Changes, Change{Name: row.Name, From: row.Price, To: next})
		}
	}
	return d, nil
}

func referencePrice(rows []MenuRow, name string) (decimal.Decimal, error) {
	for _, row := range rows {
		if row.Name != name {
			continue
		}
		price, err := ParsePrice(row.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q has no usable price: %v", ErrMissingReferenceItem, name, err)
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrMissingReferenceItem, name)
}
