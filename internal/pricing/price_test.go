package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$3.99", "3.99"},
		{"$.99", "0.99"},
		{" 4.99 ", "4.99"},
		{"$1,299.00", "1299"},
		{"$-0.50", "-0.5"},
		{"12", "12"},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s: got %s", tt.in, got)
	}
}

func TestParsePriceMalformed(t *testing.T) {
	for _, in := range []string{"", "$", "free", "1.2.3", "--1"} {
		_, err := ParsePrice(in)
		assert.ErrorIs(t, err, ErrMalformedPrice, in)
	}
}

func TestFormatPriceRoundTrip(t *testing.T) {
	for _, in := range []string{"$0.99", "$12.99", "$4.99", "$100.00"} {
		d, err := ParsePrice(in)
		require.NoError(t, err)
		assert.Equal(t, in, FormatPrice(d, currencyPrefix(in)))
	}
	assert.Equal(t, "$3.00", FormatPrice(decimal.RequireFromString("2.995"), "$"))
}

func TestCurrencyPrefix(t *testing.T) {
	assert.Equal(t, "$", currencyPrefix("$3.99"))
	assert.Equal(t, "", currencyPrefix("3.99"))
	assert.Equal(t, "$", currencyPrefix("$.99"))
	assert.Equal(t, "", currencyPrefix("MP"))
}
