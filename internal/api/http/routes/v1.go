package routes

import (
	"github.com/gin-gonic/gin"

	authdomain "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	authhttp "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/http"
	authmw "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/middleware"
	currencyhttp "github.com/GoSim-25-26J-441/marketplace-core/internal/currency/http"
)

type V1Deps struct {
	Sessions   authhttp.Sessions
	Currencies currencyhttp.Currencies
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	authhttp.New(dep.Sessions).Register(api.Group("/auth"))

	currencyHandler := currencyhttp.New(dep.Currencies)
	currencyHandler.Register(api.Group("/currency"))

	admin := api.Group("/admin")
	admin.Use(authmw.RequireRole(dep.Sessions, authdomain.RoleAdmin, authdomain.RoleSuperAdmin))
	currencyHandler.RegisterAdmin(admin.Group("/exchange-rates"))
}
