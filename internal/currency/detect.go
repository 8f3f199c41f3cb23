package currency

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/logging"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/metrics"
)

var errNoLocator = errors.New("no geolocation client configured")

// DetectUserLocation looks up the visitor's country and picks a currency.
// The choice is adopted, and stored for signed-in users, only when no
// preference exists. Lookup failures fall back silently.
func (r *Resolver) DetectUserLocation(ctx context.Context) string {
	lookupCtx, cancel := context.WithTimeout(ctx, r.opts.GeoTimeout)
	defer cancel()

	ip, _ := logging.Client(ctx)
	var (
		geo  *domain.GeolocationData
		err  error
		code string
	)
	if r.locator != nil {
		geo, err = r.locator.Locate(lookupCtx, ip)
	} else {
		err = errNoLocator
	}

	if err != nil {
		metrics.GeolocationLookups.WithLabelValues("error").Inc()
		r.log.Warnf(ctx, "detect-location", "lookup failed, using %s: %v", r.opts.UltimateFallback, err)
		code = r.opts.UltimateFallback
		geo = nil
	} else {
		metrics.GeolocationLookups.WithLabelValues("ok").Inc()
		code = r.currencyFor(geo)
	}

	r.mu.Lock()
	hasPreference := r.preference != nil
	userID := r.userID
	if !hasPreference {
		r.active = code
	}
	r.mu.Unlock()

	if hasPreference || userID == "" {
		return code
	}

	pref := domain.Preference{UserID: userID, PreferredCurrency: code}
	if geo != nil {
		now := time.Now().UTC()
		pref.DetectedCountry = strPtr(geo.Country)
		pref.DetectedCurrency = strPtr(geo.Currency)
		pref.IPAddress = strPtr(geo.IP)
		pref.DetectedAt = &now
	}
	if err := r.persistPreference(ctx, pref); err != nil {
		r.log.Warnf(ctx, "detect-location", "detected currency not stored: %v", err)
	}
	return code
}

// currencyFor applies home country, then supported detected currency, then
// the secondary default.
func (r *Resolver) currencyFor(geo *domain.GeolocationData) string {
	if geo.Country == r.opts.HomeCountry {
		return r.opts.HomeCurrency
	}
	if geo.Currency != "" {
		r.mu.RLock()
		_, ok := r.currencies[geo.Currency]
		r.mu.RUnlock()
		if ok {
			return geo.Currency
		}
	}
	return r.opts.SecondaryDefault
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
