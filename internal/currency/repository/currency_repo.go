package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
)

const pgInsufficientPrivilege = "42501"

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// ActiveCurrencies returns the active catalog, base currency first.
func (r *Repo) ActiveCurrencies(ctx context.Context) ([]domain.Currency, error) {
	const q = `
select code, name, symbol, is_base_currency, is_active, decimal_places
from currencies
where is_active
order by is_base_currency desc, code;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Currency, 0, 8)
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.Code, &c.Name, &c.Symbol, &c.IsBaseCurrency, &c.IsActive, &c.DecimalPlaces); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveRates returns unexpired active rates, newest first per pair.
func (r *Repo) ActiveRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	const q = `
select from_currency, to_currency, rate, markup_percentage, effective_date, expiry_date, source, is_active
from exchange_rates
where is_active and (expiry_date is null or expiry_date > now())
order by from_currency, to_currency, effective_date desc;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExchangeRate, 0, 16)
	for rows.Next() {
		var e domain.ExchangeRate
		var source string
		if err := rows.Scan(&e.FromCurrency, &e.ToCurrency, &e.Rate, &e.MarkupPercentage,
			&e.EffectiveDate, &e.ExpiryDate, &source, &e.IsActive); err != nil {
			return nil, err
		}
		e.Source = domain.RateSource(source)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetPreference returns domain.ErrPreferenceNotFound when the user has none.
func (r *Repo) GetPreference(ctx context.Context, userID string) (*domain.Preference, error) {
	const q = `
select user_id, preferred_currency, detected_country, detected_currency, ip_address, detected_at, updated_at
from user_currency_preferences
where user_id = $1;
`
	var p domain.Preference
	err := r.db.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.PreferredCurrency, &p.DetectedCountry,
		&p.DetectedCurrency, &p.IPAddress, &p.DetectedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPreferenceNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// UpsertPreference creates or overwrites the user's preference row.
func (r *Repo) UpsertPreference(ctx context.Context, p domain.Preference) error {
	const q = `
insert into user_currency_preferences
  (user_id, preferred_currency, detected_country, detected_currency, ip_address, detected_at, updated_at)
values ($1, $2, $3, $4, $5, $6, now())
on conflict (user_id) do update
set
  preferred_currency = excluded.preferred_currency,
  detected_country = coalesce(excluded.detected_country, user_currency_preferences.detected_country),
  detected_currency = coalesce(excluded.detected_currency, user_currency_preferences.detected_currency),
  ip_address = coalesce(excluded.ip_address, user_currency_preferences.ip_address),
  detected_at = coalesce(excluded.detected_at, user_currency_preferences.detected_at),
  updated_at = now();
`
	_, err := r.db.Exec(ctx, q, p.UserID, p.PreferredCurrency, p.DetectedCountry, p.DetectedCurrency, p.IPAddress, p.DetectedAt)
	return mapError(err)
}

// UpsertRate creates or replaces the rate for (from, to).
func (r *Repo) UpsertRate(ctx context.Context, e domain.ExchangeRate) error {
	const q = `
insert into exchange_rates
  (from_currency, to_currency, rate, markup_percentage, effective_date, expiry_date, source, is_active)
values ($1, $2, $3, $4, $5, $6, $7, $8)
on conflict (from_currency, to_currency) do update
set
  rate = excluded.rate,
  markup_percentage = excluded.markup_percentage,
  effective_date = excluded.effective_date,
  expiry_date = excluded.expiry_date,
  source = excluded.source,
  is_active = excluded.is_active;
`
	_, err := r.db.Exec(ctx, q, e.FromCurrency, e.ToCurrency, e.Rate, e.MarkupPercentage,
		e.EffectiveDate, e.ExpiryDate, string(e.Source), e.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert rate %s->%s: %w", e.FromCurrency, e.ToCurrency, err)
	}
	return nil
}

// InsertConversionLog appends one audit row.
func (r *Repo) InsertConversionLog(ctx context.Context, e domain.ConversionLogEntry) error {
	const q = `
insert into currency_conversion_logs
  (user_id, session_id, from_currency, to_currency, original_amount, converted_amount,
   exchange_rate, markup_percentage, ip_address, user_agent)
values ($1, $2, $3, $4, $5, $6, $7, $8, nullif($9, ''), nullif($10, ''));
`
	_, err := r.db.Exec(ctx, q, e.UserID, e.SessionID, e.FromCurrency, e.ToCurrency, e.OriginalAmount,
		e.ConvertedAmount, e.ExchangeRate, e.MarkupPercentage, e.IPAddress, e.UserAgent)
	return err
}

// mapError turns a row-level security rejection into ErrPreferenceForbidden.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return fmt.Errorf("%w: %s", domain.ErrPreferenceForbidden, pgErr.Message)
	}
	return err
}
