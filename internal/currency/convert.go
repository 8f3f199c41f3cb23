package currency

import (
	"context"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/logging"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/metrics"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
	one     = decimal.NewFromInt(1)
)

// Convert prices amount in to using the cached rate table. ok is false when
// neither from->to nor to->from has an active rate.
func (r *Resolver) Convert(amount float64, from, to string) (float64, bool) {
	c, ok := r.Quote(amount, from, to)
	return c.Result, ok
}

// Quote is Convert plus the rate and markup that were applied. An inverse
// rate reciprocates the stored rate and keeps its markup as stored.
// Non-finite amounts are never priced.
func (r *Resolver) Quote(amount float64, from, to string) (domain.Conversion, bool) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	c := domain.Conversion{Amount: amount, From: from, To: to}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		metrics.Conversions.WithLabelValues("invalid").Inc()
		c.Amount = 0
		return c, false
	}

	if from == to {
		metrics.Conversions.WithLabelValues("identity").Inc()
		c.Result = amount
		c.Rate = 1
		return c, true
	}
	if amount == 0 {
		metrics.Conversions.WithLabelValues("zero").Inc()
		return c, true
	}

	r.mu.RLock()
	direct, hasDirect := r.rates[pair{from, to}]
	inverse, hasInverse := r.rates[pair{to, from}]
	r.mu.RUnlock()

	var rate, markup decimal.Decimal
	switch {
	case hasDirect && direct.Rate.IsPositive():
		rate, markup = direct.Rate, direct.MarkupPercentage
		metrics.Conversions.WithLabelValues("direct").Inc()
	case hasInverse && inverse.Rate.IsPositive():
		rate, markup = one.Div(inverse.Rate), inverse.MarkupPercentage
		c.Inverted = true
		metrics.Conversions.WithLabelValues("inverse").Inc()
	default:
		metrics.Conversions.WithLabelValues("missing").Inc()
		return c, false
	}

	factor := one.Add(markup.Div(hundred))
	result := decimal.NewFromFloat(amount).Mul(rate).Mul(factor)

	c.Result = roundCents(result).InexactFloat64()
	c.Rate = rate.InexactFloat64()
	c.MarkupPercentage = markup.InexactFloat64()
	return c, true
}

// roundCents rounds half up on the cent value.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(half).Floor().Shift(-2)
}

// LogConversion records c in the audit log without blocking the caller.
// Failures are logged only.
func (r *Resolver) LogConversion(ctx context.Context, c domain.Conversion) {
	entry := domain.ConversionLogEntry{
		FromCurrency:     c.From,
		ToCurrency:       c.To,
		OriginalAmount:   decimal.NewFromFloat(c.Amount),
		ConvertedAmount:  decimal.NewFromFloat(c.Result),
		ExchangeRate:     decimal.NewFromFloat(c.Rate),
		MarkupPercentage: decimal.NewFromFloat(c.MarkupPercentage),
	}
	entry.IPAddress, entry.UserAgent = logging.Client(ctx)

	r.mu.RLock()
	userID := r.userID
	r.mu.RUnlock()
	if userID != "" {
		entry.UserID = &userID
	} else {
		sid := r.sessionID
		entry.SessionID = &sid
	}

	r.pending.Add(1)
	go func(ctx context.Context) {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, r.opts.LogTimeout)
		defer cancel()
		if err := r.store.InsertConversionLog(ctx, entry); err != nil {
			r.log.Warnf(ctx, "log-conversion", "audit write dropped: %v", err)
		}
	}(context.WithoutCancel(ctx))
}

// ConvertAndLog converts and, when a rate was applied, audits the result.
func (r *Resolver) ConvertAndLog(ctx context.Context, amount float64, from, to string) (domain.Conversion, bool) {
	c, ok := r.Quote(amount, from, to)
	if ok && c.From != c.To && amount != 0 {
		r.LogConversion(ctx, c)
	}
	return c, ok
}
