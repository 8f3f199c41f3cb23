package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/GoSim-25-26J-441/marketplace-core/internal/api/http"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/api/http/routes"
	authhttp "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/http"
	currencyhttp "github.com/GoSim-25-26J-441/marketplace-core/internal/currency/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	DB             *pgxpool.Pool
	Redis          *redis.Client
	Sessions       authhttp.Sessions
	Currencies     currencyhttp.Currencies
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.RegisterV1(r, routes.V1Deps{
		Sessions:   dep.Sessions,
		Currencies: dep.Currencies,
	})

	return r
}
