package bootstrap

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
)

type sessionsStub struct {
	state authdomain.AuthState
}

func (s *sessionsStub) State() authdomain.AuthState { return s.state }
func (s *sessionsStub) Phase() authdomain.Phase     { return authdomain.PhaseAnonymous }
func (s *sessionsStub) SignUp(context.Context, string, string, authdomain.ProfileFields) (*authdomain.SignUpResult, error) {
	return &authdomain.SignUpResult{}, nil
}
func (s *sessionsStub) SignIn(context.Context, string, string, bool) (*authdomain.Session, error) {
	return &authdomain.Session{}, nil
}
func (s *sessionsStub) SignOut(context.Context) error                { return nil }
func (s *sessionsStub) ResetPassword(context.Context, string) error  { return nil }
func (s *sessionsStub) UpdatePassword(context.Context, string) error { return nil }
func (s *sessionsStub) UpdateProfile(context.Context, authdomain.ProfilePatch) (*authdomain.Profile, error) {
	return nil, authdomain.ErrNotAuthenticated
}
func (s *sessionsStub) UploadAvatar(context.Context, authdomain.AvatarFile) (string, error) {
	return "", authdomain.ErrNotAuthenticated
}
func (s *sessionsStub) RefreshProfile(context.Context) {}
func (s *sessionsStub) ForceAuthReset(context.Context) {}

type currenciesStub struct {
	rateUpdates int
}

func (c *currenciesStub) State() domain.State                            { return domain.State{Active: "NGN", Base: "NGN"} }
func (c *currenciesStub) SetCurrency(context.Context, string) error      { return nil }
func (c *currenciesStub) Format(float64, string) string                  { return "" }
func (c *currenciesStub) DetectUserLocation(context.Context) string      { return "NGN" }
func (c *currenciesStub) RefreshExchangeRates(context.Context) error     { return nil }
func (c *currenciesStub) ConvertAndLog(_ context.Context, amount float64, from, to string) (domain.Conversion, bool) {
	return domain.Conversion{Amount: amount, From: from, To: to, Result: amount}, true
}
func (c *currenciesStub) UpdateExchangeRate(context.Context, string, string, float64, *float64) error {
	c.rateUpdates++
	return nil
}

func TestBuildRouter_AdminRoutesRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := `{"from_currency":"USD","to_currency":"NGN","rate":1500}`

	tests := []struct {
		name    string
		state   authdomain.AuthState
		want    int
		applied int
	}{
		{"anonymous", authdomain.AuthState{}, http.StatusUnauthorized, 0},
		{"customer", authdomain.AuthState{
			User:    &authdomain.User{ID: "c1"},
			Profile: &authdomain.Profile{UserID: "c1", Role: authdomain.RoleCustomer},
		}, http.StatusForbidden, 0},
		{"admin", authdomain.AuthState{
			User:    &authdomain.User{ID: "a1"},
			Profile: &authdomain.Profile{UserID: "a1", Role: authdomain.RoleAdmin},
		}, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := &currenciesStub{}
			r := BuildRouter(RouterDeps{
				ServiceName:    "marketplace-core",
				Version:        "test",
				AllowedOrigins: []string{"https://shop.example.com"},
				Sessions:       &sessionsStub{state: tt.state},
				Currencies:     cur,
			})

			req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/exchange-rates", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, tt.applied, cur.rateUpdates)
		})
	}
}

func TestBuildRouter_PublicSurface(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := BuildRouter(RouterDeps{
		ServiceName:    "marketplace-core",
		Version:        "test",
		AllowedOrigins: []string{"https://shop.example.com"},
		Sessions:       &sessionsStub{},
		Currencies:     &currenciesStub{},
	})

	for _, path := range []string{"/health", "/metrics", "/api/v1/auth/state", "/api/v1/currency/state"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-Id"), path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/currency/state", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "https://shop.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
