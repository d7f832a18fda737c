// Package currency converts paid-message amounts to USD equivalents.
//
// Rates are a static USD-per-unit table; live rate acquisition is an
// external concern. Unknown currencies pass through unmodified so a paid
// message is never silently dropped.
package currency

import "strings"

// fallbackRates maps ISO currency codes to their USD value per unit.
var fallbackRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"DOP": 0.018,
	"MXN": 0.059,
	"COP": 0.00026,
	"PEN": 0.27,
	"CLP": 0.0011,
	"ARS": 0.0012,
	"BRL": 0.21,
	"CAD": 0.74,
	"GBP": 1.27,
	"JPY": 0.0067,
	"NGN": 0.00063,
	"INR": 0.012,
	"CNY": 0.14,
	"KRW": 0.00076,
	"TRY": 0.031,
	"AUD": 0.66,
	"CHF": 1.13,
	"RUB": 0.011,
}

// Converter converts amounts in a known set of currencies to USD.
type Converter struct {
	rates map[string]float64
}

// Option applies a configuration option to the Converter.
type Option func(*Converter)

// WithRates replaces the rate table. Values are USD per currency unit.
func WithRates(rates map[string]float64) Option {
	return func(c *Converter) {
		if len(rates) == 0 {
			return
		}
		c.rates = make(map[string]float64, len(rates))
		for code, rate := range rates {
			if rate > 0 {
				c.rates[strings.ToUpper(code)] = rate
			}
		}
	}
}

// New creates a core Converter with the built-in fallback rate table.
func New(opts ...Option) *Converter {
	c := &Converter{rates: fallbackRates}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ToUSD converts amount in the given currency to USD. For currencies
// without a known rate the amount passes through unmodified and known
// is false so the caller can log a warning.
func (c *Converter) ToUSD(amount float64, code string) (usd float64, known bool) {
	rate, ok := c.rates[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return amount, false
	}
	return amount * rate, true
}

// Supported reports whether a currency code has a known rate.
func (c *Converter) Supported(code string) bool {
	_, ok := c.rates[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}
