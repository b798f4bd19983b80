package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rules is the item policy behind a surge toggle. Everything item-specific
// lives here so policy changes never touch the transform itself.
type Rules struct {
	// ReferenceItem is the row whose price reveals the active mode.
	ReferenceItem string

	// SurgeReferencePrice is the reference price while surge is active.
	// Detection is an exact decimal match against it.
	SurgeReferencePrice decimal.Decimal

	// NormalReferencePrice is the reference price outside surge.
	NormalReferencePrice decimal.Decimal

	// Step is the default shift applied to priced rows.
	Step decimal.Decimal

	// LargeStep is the shift applied to DoubleStep items.
	LargeStep decimal.Decimal

	// Pinned maps item names to a price they always carry.
	Pinned map[string]string

	// DoubleStep lists items that move by LargeStep instead of Step.
	DoubleStep []string

	// CategoryMarkers are the name fragments that still shift on
	// special-category tabs.
	CategoryMarkers []string

	// SpecialCategoryMarker classifies a tab identity as special-category.
	SpecialCategoryMarker string
}

// DefaultRules returns the policy the arena menus run with.
func DefaultRules() Rules {
	return Rules{
		ReferenceItem:        "Bottled Water",
		SurgeReferencePrice:  decimal.RequireFromString("4.99"),
		NormalReferencePrice: decimal.RequireFromString("3.99"),
		Step:                 decimal.NewFromInt(1),
		LargeStep:            decimal.NewFromInt(2),
		Pinned: map[string]string{
			"Hubs Peanuts":     "$0.99",
			"Premium Wine 5oz": "$12.99",
		},
		DoubleStep:            []string{"Premium Can 16oz", "Domestic Can 16oz"},
		CategoryMarkers:       []string{"Soda", "Gatorade", "Water"},
		SpecialCategoryMarker: "Ben",
	}
}

// Validate checks that the reference item is governed by the default step,
// so that detecting the mode and mutating prices stay consistent.
func (r Rules) Validate() error {
	if strings.TrimSpace(r.ReferenceItem) == "" {
		return fmt.Errorf("%w: reference item is empty", ErrInvalidRules)
	}
	if !r.Step.IsPositive() || !r.LargeStep.IsPositive() {
		return fmt.Errorf("%w: steps must be positive", ErrInvalidRules)
	}
	if !r.SurgeReferencePrice.Sub(r.NormalReferencePrice).Equal(r.Step) {
		return fmt.Errorf("%w: surge reference %s and normal reference %s are not one step (%s) apart",
			ErrInvalidRules, r.SurgeReferencePrice, r.NormalReferencePrice, r.Step)
	}
	if _, ok := r.Pinned[r.ReferenceItem]; ok {
		return fmt.Errorf("%w: reference item %q is pinned", ErrInvalidRules, r.ReferenceItem)
	}
	for _, name := range r.DoubleStep {
		if name == r.ReferenceItem {
			return fmt.Errorf("%w: reference item %q moves by the large step", ErrInvalidRules, r.ReferenceItem)
		}
	}
	if r.SpecialCategoryMarker != "" && !containsAny(r.ReferenceItem, r.CategoryMarkers) {
		return fmt.Errorf("%w: reference item %q matches no category marker and would not move on special-category tabs",
			ErrInvalidRules, r.ReferenceItem)
	}
	for name, price := range r.Pinned {
		if _, err := ParsePrice(price); err != nil {
			return fmt.Errorf("%w: pinned price for %q: %v", ErrInvalidRules, name, err)
		}
	}
	return nil
}

// PinnedNames returns the pinned item names in a stable order.
func (r Rules) PinnedNames() []string {
	names := make([]string, 0, len(r.Pinned))
	for name := range r.Pinned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsAny(name string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}
