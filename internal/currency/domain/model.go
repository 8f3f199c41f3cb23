package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is one entry of the display-currency catalog.
type Currency struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	IsBaseCurrency bool   `json:"is_base_currency"`
	IsActive       bool   `json:"is_active"`
	DecimalPlaces  int    `json:"decimal_places"`
}

// RateSource records who set an exchange rate.
type RateSource string

const (
	SourceAPI    RateSource = "api"
	SourceManual RateSource = "manual"
	SourceSystem RateSource = "system"
)

// ExchangeRate is a directed conversion factor with a surcharge applied on top.
type ExchangeRate struct {
	FromCurrency     string          `json:"from_currency"`
	ToCurrency       string          `json:"to_currency"`
	Rate             decimal.Decimal `json:"rate"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	EffectiveDate    time.Time       `json:"effective_date"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
	Source           RateSource      `json:"source"`
	IsActive         bool            `json:"is_active"`
}

// Preference is a user's stored display currency plus what detection last saw.
type Preference struct {
	UserID            string     `json:"user_id"`
	PreferredCurrency string     `json:"preferred_currency"`
	DetectedCountry   *string    `json:"detected_country,omitempty"`
	DetectedCurrency  *string    `json:"detected_currency,omitempty"`
	IPAddress         *string    `json:"ip_address,omitempty"`
	DetectedAt        *time.Time `json:"detected_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// GeolocationData is the result of an IP lookup.
type GeolocationData struct {
	Country  string `json:"country_code"`
	Currency string `json:"currency"`
	IP       string `json:"ip"`
}

// ConversionLogEntry is one audited conversion. Exactly one of UserID and
// SessionID is set.
type ConversionLogEntry struct {
	UserID           *string         `json:"user_id,omitempty"`
	SessionID        *string         `json:"session_id,omitempty"`
	FromCurrency     string          `json:"from_currency"`
	ToCurrency       string          `json:"to_currency"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	ConvertedAmount  decimal.Decimal `json:"converted_amount"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	IPAddress        string          `json:"ip_address,omitempty"`
	UserAgent        string          `json:"user_agent,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Conversion is a priced amount together with the factors that produced it.
type Conversion struct {
	Amount           float64 `json:"amount"`
	From             string  `json:"from"`
	To               string  `json:"to"`
	Result           float64 `json:"result"`
	Rate             float64 `json:"rate"`
	MarkupPercentage float64 `json:"markup_percentage"`
	Inverted         bool    `json:"inverted"`
}

// State is the resolver snapshot served to pages.
type State struct {
	Active     string      `json:"active_currency"`
	Base       string      `json:"base_currency"`
	Currencies []Currency  `json:"currencies"`
	Preference *Preference `json:"preference,omitempty"`
	Error      string      `json:"error,omitempty"`
}
