package currency

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var localeByCode = map[string]string{
	"NGN": "en-NG",
	"USD": "en-US",
	"EUR": "de-DE",
	"GBP": "en-GB",
	"CAD": "en-CA",
	"AUD": "en-AU",
	"ZAR": "en-ZA",
	"KES": "en-KE",
	"GHS": "en-GH",
	"INR": "en-IN",
	"JPY": "ja-JP",
	"CNY": "zh-CN",
}

// Format renders amount with the currency's symbol and locale grouping.
// An empty code means the active currency. Non-finite amounts render as zero
// in the active currency, and codes outside the catalog as a bare
// two-decimal number.
func (r *Resolver) Format(amount float64, code string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount, code = 0, ""
	}
	if code == "" {
		code = r.Active()
	}
	code = strings.ToUpper(code)

	r.mu.RLock()
	c, ok := r.currencies[code]
	r.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("%.2f", amount)
	}

	dp := c.DecimalPlaces
	if dp < 0 {
		dp = 2
	}
	locale, ok := localeByCode[code]
	if !ok {
		locale = "en"
	}
	p := message.NewPrinter(language.Make(locale))
	return c.Symbol + p.Sprint(number.Decimal(amount, number.Scale(dp)))
}

// Symbol returns the catalog symbol for code, or code itself.
func (r *Resolver) Symbol(code string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.currencies[strings.ToUpper(code)]; ok && c.Symbol != "" {
		return c.Symbol
	}
	return code
}
