package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/marketplace-core/config"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/app"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/avatar"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/backend"
	authdomain "github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/events"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/repository"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/session"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/tokenstore"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/bootstrap"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency"
	cronjob "github.com/GoSim-25-26J-441/marketplace-core/internal/currency/cron"
	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/geo"
	currencyrepo "github.com/GoSim-25-26J-441/marketplace-core/internal/currency/repository"
)

// infra holds the process-lifetime connections shared by every runtime.
type infra struct {
	dbs       *bootstrap.Databases
	redis     *redis.Client
	nats      *nats.Conn
	bus       events.Bus
	factory   *backend.Factory
	avatars   session.AvatarUploader
	persisted tokenstore.Store
	scoped    tokenstore.Store
}

func openInfra(ctx context.Context, cfg *config.Config) (*infra, error) {
	in := &infra{}

	dbs, err := bootstrap.OpenDatabases(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	in.dbs = dbs

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = rdb

	switch cfg.Events.Backend {
	case "nats":
		nc, err := nats.Connect(cfg.Events.NATSURL, nats.Name(cfg.App.ServiceName))
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		in.nats = nc
		in.bus = events.NewNATSBus(nc, cfg.Events.Channel)
	default:
		in.bus = events.NewRedisBus(rdb, cfg.Events.Channel)
	}

	fbApp, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		in.Close()
		return nil, err
	}
	adminAuth, err := fbApp.Auth(ctx)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	toolkit, err := backend.NewIdentityToolkit(ctx, cfg.Firebase.APIKey)
	if err != nil {
		in.Close()
		return nil, err
	}

	in.persisted = tokenstore.NewRedisStore(rdb, cfg.Auth.LocalPrefix, 0)
	in.scoped = tokenstore.NewRedisStore(rdb, cfg.Auth.SessionPrefix, cfg.Auth.SessionTTL)
	in.factory = &backend.Factory{
		Admin:     adminAuth,
		Passwords: toolkit,
		Stores: map[authdomain.StorageKind]tokenstore.Store{
			authdomain.StorageLocal:   in.persisted,
			authdomain.StorageSession: in.scoped,
		},
		Events:              in.bus,
		RequireConfirmation: cfg.Firebase.RequireEmailConfirmation,
	}

	in.avatars, err = openAvatars(ctx, cfg, fbApp)
	if err != nil {
		in.Close()
		return nil, err
	}
	return in, nil
}

func openAvatars(ctx context.Context, cfg *config.Config, fbApp *firebase.App) (session.AvatarUploader, error) {
	switch cfg.Avatar.Backend {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Avatar.Region))
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return avatar.NewS3Uploader(s3.NewFromConfig(awsCfg), cfg.Avatar.Bucket, cfg.Avatar.Region,
			cfg.Avatar.PublicURL, cfg.Avatar.MaxBytes), nil
	case "gcs":
		bucket := cfg.Avatar.Bucket
		if bucket == "" {
			bucket = cfg.Firebase.StorageBucket
		}
		if bucket == "" {
			log.Println("[warn] component=main operation=avatars no bucket configured, uploads disabled")
			return nil, nil
		}
		client, err := fbApp.Storage(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase storage client: %w", err)
		}
		return avatar.NewGCSUploader(client, bucket, cfg.Avatar.MaxBytes), nil
	default:
		return nil, nil
	}
}

func (in *infra) Close() {
	if in.nats != nil {
		_ = in.nats.Drain()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.dbs != nil {
		in.dbs.Close()
	}
}

// run builds one runtime and serves until ctx ends or an auth reset asks
// for a rebuild. reset reports the latter.
func run(ctx context.Context, cfg *config.Config, in *infra) (reset bool, err error) {
	reloadCh := make(chan struct{})
	var once sync.Once
	reload := func() { once.Do(func() { close(reloadCh) }) }

	sessions, err := session.NewManager(session.Deps{
		Backends: func(kind authdomain.StorageKind) (session.Backend, error) {
			b, err := in.factory.ClientFor(kind)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		Profiles:   repository.NewProfileRepository(in.dbs.SQL),
		Avatars:    in.avatars,
		Persistent: in.persisted,
		Scoped:     in.scoped,
		Events:     in.bus,
	}, session.Options{
		ProfileTimeout: cfg.Auth.ProfileTimeout,
		Reload:         reload,
	})
	if err != nil {
		return false, err
	}

	resolver := currency.NewResolver(
		currencyrepo.NewRepo(in.dbs.Pool),
		geo.NewClient(cfg.Geolocation.Endpoint, cfg.Geolocation.RequestsPerSecond, cfg.Geolocation.Burst),
		currency.Options{
			HomeCountry:      cfg.Currency.HomeCountry,
			HomeCurrency:     cfg.Currency.HomeCurrency,
			SecondaryDefault: cfg.Currency.SecondaryDefault,
			UltimateFallback: cfg.Currency.UltimateFallback,
			GeoTimeout:       cfg.Geolocation.Timeout,
			DefaultMarkup:    cfg.Currency.DefaultMarkup,
			LogTimeout:       cfg.Currency.LogTimeout,
		},
	)

	runtime := app.New(sessions, resolver)
	runtime.Start(ctx)
	defer runtime.Close()

	scheduler := cronjob.NewScheduler(resolver, cfg.Currency.RefreshSchedule)
	if err := scheduler.Start(); err != nil {
		return false, err
	}
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             in.dbs.Pool,
		Redis:          in.redis,
		Sessions:       sessions,
		Currencies:     resolver,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[info] component=main operation=serve listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case <-reloadCh:
		reset = true
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("[warn] component=main operation=shutdown error=%v", serr)
	}
	return reset, err
}
