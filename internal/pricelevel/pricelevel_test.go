package pricelevel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

func TestAssign(t *testing.T) {
	l := DefaultLevels()

	tests := []struct {
		current string
		mode    pricing.Mode
		target  string
		change  bool
	}{
		{"5430", pricing.Surge, "8524", true},
		{"8524", pricing.Surge, "8524", false},
		{"8524", pricing.Normal, "5430", true},
		{"5430", pricing.Normal, "5430", false},
		{"", pricing.Normal, "5430", true},
		{"9999", pricing.Surge, "8524", true},
	}
	for _, tt := range tests {
		a := l.Assign(tt.current, tt.mode)
		assert.Equal(t, tt.target, a.Target)
		assert.Equal(t, tt.change, a.Change, "current=%q mode=%s", tt.current, tt.mode)
	}
}

func TestName(t *testing.T) {
	l := DefaultLevels()
	assert.Equal(t, "Concert Price Level", l.Name("8524"))
	assert.Equal(t, "Default Price Level", l.Name("5430"))
	assert.Equal(t, "price level 7", l.Name("7"))
}

func TestParseVendorID(t *testing.T) {
	id, ok := ParseVendorID("vendor-1234")
	assert.True(t, ok)
	assert.Equal(t, 1234, id)

	id, ok = ParseVendorID("42")
	assert.True(t, ok)
	assert.Equal(t, 42, id)

	_, ok = ParseVendorID("none")
	assert.False(t, ok)
}
