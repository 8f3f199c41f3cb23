package http

import (
	"context"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
)

// Currencies is the resolver surface served over HTTP.
type Currencies interface {
	State() domain.State
	SetCurrency(ctx context.Context, code string) error
	ConvertAndLog(ctx context.Context, amount float64, from, to string) (domain.Conversion, bool)
	Format(amount float64, code string) string
	DetectUserLocation(ctx context.Context) string
	UpdateExchangeRate(ctx context.Context, from, to string, rate float64, markup *float64) error
	RefreshExchangeRates(ctx context.Context) error
}

type Handler struct {
	currencies Currencies
}

func New(currencies Currencies) *Handler {
	return &Handler{currencies: currencies}
}

type setCurrencyRequest struct {
	Code string `json:"code" binding:"required"`
}

type convertResponse struct {
	domain.Conversion
	Available bool   `json:"available"`
	Formatted string `json:"formatted,omitempty"`
}

type rateRequest struct {
	FromCurrency     string   `json:"from_currency" binding:"required"`
	ToCurrency       string   `json:"to_currency" binding:"required"`
	Rate             float64  `json:"rate" binding:"required"`
	MarkupPercentage *float64 `json:"markup_percentage,omitempty"`
}
