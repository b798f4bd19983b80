// Package pricelevel maps a pricing mode onto the vendor portal's price-level codes.
package pricelevel

import (
	"regexp"
	"strconv"

	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// Levels holds the two dropdown values of the vendor edit page.
type Levels struct {
	Concert string `yaml:"concert" json:"concert"`
	Default string `yaml:"default" json:"default"`
}

// DefaultLevels returns the codes of the arena's concert and default price levels.
func DefaultLevels() Levels {
	return Levels{Concert: "8524", Default: "5430"}
}

// Target returns the code a vendor should carry in mode.
func (l Levels) Target(mode pricing.Mode) string {
	if mode == pricing.Surge {
		return l.Concert
	}
	return l.Default
}

// Name is the human label of a code, used in logs.
func (l Levels) Name(code string) string {
	switch code {
	case l.Concert:
		return "Concert Price Level"
	case l.Default:
		return "Default Price Level"
	default:
		return "price level " + code
	}
}

// Assignment is the decision for one vendor.
type Assignment struct {
	Current string
	Target  string
	Change  bool
}

// Assign compares the vendor's current code with the target for mode.
func (l Levels) Assign(current string, mode pricing.Mode) Assignment {
	target := l.Target(mode)
	return Assignment{
		Current: current,
		Target:  target,
		Change:  current != target,
	}
}

var digits = regexp.MustCompile(`\d+`)

// ParseVendorID extracts the numeric id from a data-vendor-id attribute.
func ParseVendorID(attr string) (int, bool) {
	m := digits.FindString(attr)
	if m == "" {
		return 0, false
	}
	id, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return id, true
}
