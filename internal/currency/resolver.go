package currency

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/logging"
)

// Store is the remote currency store.
type Store interface {
	ActiveCurrencies(ctx context.Context) ([]domain.Currency, error)
	ActiveRates(ctx context.Context) ([]domain.ExchangeRate, error)
	GetPreference(ctx context.Context, userID string) (*domain.Preference, error)
	UpsertPreference(ctx context.Context, p domain.Preference) error
	UpsertRate(ctx context.Context, r domain.ExchangeRate) error
	InsertConversionLog(ctx context.Context, e domain.ConversionLogEntry) error
}

// Locator resolves an IP address (or the caller's own when empty) to a
// country and currency.
type Locator interface {
	Locate(ctx context.Context, ip string) (*domain.GeolocationData, error)
}

// Options holds the resolution defaults.
type Options struct {
	HomeCountry      string
	HomeCurrency     string
	SecondaryDefault string
	UltimateFallback string
	GeoTimeout       time.Duration
	DefaultMarkup    float64
	LogTimeout       time.Duration
}

// DefaultOptions returns the marketplace defaults: Nigerian visitors see NGN,
// other detected visitors get their own currency if supported, else USD.
func DefaultOptions() Options {
	return Options{
		HomeCountry:      "NG",
		HomeCurrency:     "NGN",
		SecondaryDefault: "USD",
		UltimateFallback: "NGN",
		GeoTimeout:       10 * time.Second,
		DefaultMarkup:    2.5,
		LogTimeout:       5 * time.Second,
	}
}

type pair struct {
	from, to string
}

// Resolver owns the active display currency, the catalog and the rate table.
type Resolver struct {
	mu         sync.RWMutex
	currencies map[string]domain.Currency
	rates      map[pair]domain.ExchangeRate
	base       string
	active     string
	userID     string
	preference *domain.Preference
	lastErr    string

	store     Store
	locator   Locator
	opts      Options
	sessionID string
	pending   sync.WaitGroup
	log       *logging.Logger
}

// NewResolver creates a Resolver with an empty catalog.
func NewResolver(store Store, locator Locator, opts Options) *Resolver {
	def := DefaultOptions()
	if opts.HomeCountry == "" {
		opts.HomeCountry = def.HomeCountry
	}
	if opts.HomeCurrency == "" {
		opts.HomeCurrency = def.HomeCurrency
	}
	if opts.SecondaryDefault == "" {
		opts.SecondaryDefault = def.SecondaryDefault
	}
	if opts.UltimateFallback == "" {
		opts.UltimateFallback = def.UltimateFallback
	}
	if opts.GeoTimeout <= 0 {
		opts.GeoTimeout = def.GeoTimeout
	}
	if opts.LogTimeout <= 0 {
		opts.LogTimeout = def.LogTimeout
	}

	return &Resolver{
		currencies: make(map[string]domain.Currency),
		rates:      make(map[pair]domain.ExchangeRate),
		active:     opts.UltimateFallback,
		store:      store,
		locator:    locator,
		opts:       opts,
		sessionID:  uuid.NewString(),
		log:        logging.New("currency"),
	}
}

// State returns a snapshot for rendering.
func (r *Resolver) State() domain.State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].IsBaseCurrency != list[j].IsBaseCurrency {
			return list[i].IsBaseCurrency
		}
		return list[i].Code < list[j].Code
	})

	var pref *domain.Preference
	if r.preference != nil {
		p := *r.preference
		pref = &p
	}
	return domain.State{
		Active:     r.active,
		Base:       r.base,
		Currencies: list,
		Preference: pref,
		Error:      r.lastErr,
	}
}

// Active returns the active currency code.
func (r *Resolver) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SessionID identifies this runtime in anonymous conversion logs.
func (r *Resolver) SessionID() string {
	return r.sessionID
}

// LoadCatalog replaces the currency catalog and rate table. On failure the
// previous tables are kept.
func (r *Resolver) LoadCatalog(ctx context.Context) error {
	var (
		currencies []domain.Currency
		rates      []domain.ExchangeRate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		currencies, err = r.store.ActiveCurrencies(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = r.store.ActiveRates(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.log.Error(ctx, "load-catalog", err)
		r.setError(err)
		return err
	}

	catalog := make(map[string]domain.Currency, len(currencies))
	base := ""
	for _, c := range currencies {
		catalog[c.Code] = c
		if c.IsBaseCurrency && base == "" {
			base = c.Code
		}
	}
	table := make(map[pair]domain.ExchangeRate, len(rates))
	for _, e := range rates {
		if !e.IsActive {
			continue
		}
		k := pair{e.FromCurrency, e.ToCurrency}
		if cur, ok := table[k]; ok && !e.EffectiveDate.After(cur.EffectiveDate) {
			continue
		}
		table[k] = e
	}

	r.mu.Lock()
	r.currencies = catalog
	r.rates = table
	r.base = base
	r.lastErr = ""
	r.mu.Unlock()

	r.log.Infof(ctx, "load-catalog", "currencies=%d rates=%d base=%s", len(catalog), len(table), base)
	return nil
}

// RefreshExchangeRates reloads the catalog. Live rate APIs hook in here.
func (r *Resolver) RefreshExchangeRates(ctx context.Context) error {
	return r.LoadCatalog(ctx)
}

// LoadUserPreference adopts the stored preference for userID.
// domain.ErrPreferenceNotFound is the normal outcome for users without one.
func (r *Resolver) LoadUserPreference(ctx context.Context, userID string) (*domain.Preference, error) {
	if userID == "" {
		return nil, domain.ErrPreferenceNotFound
	}
	pref, err := r.store.GetPreference(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			r.log.Error(ctx, "load-preference", err)
			r.setError(err)
		}
		return nil, err
	}

	r.mu.Lock()
	if r.userID == userID {
		r.preference = pref
		r.active = pref.PreferredCurrency
	}
	r.mu.Unlock()
	return pref, nil
}

// SetCurrency makes code the active currency and, for a signed-in user,
// stores it as their preference. A failed write is returned but the active
// currency keeps the new value.
func (r *Resolver) SetCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	if _, ok := r.currencies[code]; !ok {
		r.mu.Unlock()
		return domain.ErrUnsupportedCurrency
	}
	r.active = code
	userID := r.userID
	var pref domain.Preference
	if r.preference != nil {
		pref = *r.preference
	}
	r.mu.Unlock()

	if userID == "" {
		return nil
	}

	pref.UserID = userID
	pref.PreferredCurrency = code
	return r.persistPreference(ctx, pref)
}

func (r *Resolver) persistPreference(ctx context.Context, pref domain.Preference) error {
	if err := r.store.UpsertPreference(ctx, pref); err != nil {
		if errors.Is(err, domain.ErrPreferenceForbidden) {
			r.log.Warnf(ctx, "save-preference", "user_id=%s preference kept locally only: %v", pref.UserID, err)
		} else {
			r.log.Error(ctx, "save-preference", err)
		}
		r.setError(err)
		return err
	}

	pref.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	if r.userID == pref.UserID {
		r.preference = &pref
	}
	r.mu.Unlock()
	return nil
}

// UpdateExchangeRate stores a manual rate for from->to and reloads the
// catalog. A nil markup uses the configured default.
func (r *Resolver) UpdateExchangeRate(ctx context.Context, from, to string, rate float64, markup *float64) error {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" || from == to {
		return domain.ErrInvalidRate
	}
	if !(rate > 0) || math.IsInf(rate, 1) {
		return domain.ErrInvalidRate
	}
	m := r.opts.DefaultMarkup
	if markup != nil {
		m = *markup
	}
	if !(m >= 0) || math.IsInf(m, 1) {
		return domain.ErrInvalidRate
	}

	err := r.store.UpsertRate(ctx, domain.ExchangeRate{
		FromCurrency:     from,
		ToCurrency:       to,
		Rate:             decimal.NewFromFloat(rate),
		MarkupPercentage: decimal.NewFromFloat(m),
		EffectiveDate:    time.Now().UTC(),
		Source:           domain.SourceManual,
		IsActive:         true,
	})
	if err != nil {
		r.log.Error(ctx, "update-rate", err)
		return err
	}
	return r.LoadCatalog(ctx)
}

// Resolve runs the startup order: catalog, then the user's preference, then
// detection when no preference exists.
func (r *Resolver) Resolve(ctx context.Context, userID string) {
	if err := r.LoadCatalog(ctx); err != nil {
		r.log.Warnf(ctx, "resolve", "continuing with previous catalog: %v", err)
	}
	r.OnIdentityChange(ctx, userID)
}

// OnIdentityChange re-runs preference loading and detection for a new
// identity. An empty userID means anonymous.
func (r *Resolver) OnIdentityChange(ctx context.Context, userID string) {
	r.mu.Lock()
	r.userID = userID
	r.preference = nil
	r.mu.Unlock()

	if userID != "" {
		_, err := r.LoadUserPreference(ctx, userID)
		if err == nil {
			return
		}
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			// unknown preference state: do not risk overwriting a stored choice
			return
		}
	}

	if r.catalogSize() > 0 {
		r.DetectUserLocation(ctx)
	}
}

// Close waits for pending conversion log writes.
func (r *Resolver) Close() {
	r.pending.Wait()
}

func (r *Resolver) catalogSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.currencies)
}

func (r *Resolver) setError(err error) {
	r.mu.Lock()
	r.lastErr = err.Error()
	r.mu.Unlock()
}
