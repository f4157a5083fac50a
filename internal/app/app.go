// Package app assembles the document service from configuration: store,
// identity, revocation, rate limiting, metrics and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/docservice/handlers"
	"github.com/gogotex/gogotex/backend/docservice/internal/config"
	"github.com/gogotex/gogotex/backend/docservice/internal/database"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/handler"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/service"
	"github.com/gogotex/gogotex/backend/docservice/internal/identity"
	"github.com/gogotex/gogotex/backend/docservice/internal/sessions"
	"github.com/gogotex/gogotex/backend/docservice/internal/storage"
	"github.com/gogotex/gogotex/backend/docservice/internal/users"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
	"github.com/gogotex/gogotex/backend/docservice/pkg/metrics"
	"github.com/gogotex/gogotex/backend/docservice/pkg/middleware"
)

// App holds the long-lived dependencies of a running service.
type App struct {
	cfg       *config.Config
	store     *Store
	mongo     *mongo.Client
	redis     *redis.Client
	verifier  middleware.Verifier
	blacklist *sessions.Blacklist
	users     *users.Service
	docs      service.Service
	registry  *prometheus.Registry
	started   time.Time
}

// New connects every configured dependency. Optional ones (Redis, MinIO,
// Keycloak) log a warning and are skipped when unreachable.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg, started: time.Now()}

	if cfg.MongoDB.URI != "" {
		mc, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			if cfg.Store.Driver == config.DriverMongo {
				return nil, err
			}
			logger.Warnf("mongo unavailable, users kept in memory: %v", err)
		} else {
			a.mongo = mc
		}
	}

	store, err := OpenStore(ctx, cfg, a.mongo)
	if err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a.store = store

	if addr := cfg.Redis.Addr(); addr != "" {
		rc := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rc.Close()
		} else {
			logger.Infof("connected to Redis at %s", addr)
			a.redis = rc
		}
	}
	a.blacklist = sessions.NewBlacklist(a.redis)

	if a.verifier, err = newVerifier(ctx, cfg); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	if a.users, err = newUsers(cfg, a.mongo); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	svcCfg := service.Config{
		RetentionCap:    cfg.Versioning.RetentionCap,
		DefaultPageSize: cfg.Versioning.DefaultPageSize,
		MaxPageSize:     cfg.Versioning.MaxPageSize,
	}
	if cfg.MinIO.Endpoint != "" {
		mio, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("version archive disabled: %v", err)
		} else {
			svcCfg.Archiver = storage.NewVersionArchive(mio)
		}
	}
	a.docs = service.New(store.Repo, svcCfg)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(a.registry)

	logger.Infof("config summary: store=%s keycloak=%v mongo=%v redis=%v archive=%v retention=%d",
		cfg.Store.Driver, cfg.Keycloak.URL != "", a.mongo != nil, a.redis != nil, svcCfg.Archiver != nil, cfg.Versioning.RetentionCap)
	return a, nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		v, err := identity.NewOIDCVerifier(ctx, cfg.Keycloak.Issuer(), cfg.Keycloak.ClientID)
		if err == nil {
			return v, nil
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		return identity.NewHMACVerifier(cfg.JWT.Secret), nil
	}
	if cfg.AllowInsecureToken {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return identity.NewInsecureVerifier(), nil
	}
	return nil, errors.New("no token verifier: set KEYCLOAK_URL, JWT_SECRET or ALLOW_INSECURE_TOKEN")
}

func newUsers(cfg *config.Config, mc *mongo.Client) (*users.Service, error) {
	if mc != nil {
		col := mc.Database(cfg.MongoDB.Database).Collection("users")
		return users.NewService(users.NewMongoUserRepository(col)), nil
	}
	repo, err := users.NewMemoryUserRepository()
	if err != nil {
		return nil, err
	}
	return users.NewService(repo), nil
}

// Documents is the document service, for commands that bypass HTTP.
func (a *App) Documents() service.Service { return a.docs }

// Router builds the HTTP surface.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1", middleware.AuthMiddleware(a.verifier, a.blacklist))
	if rl := a.cfg.RateLimit; rl.Enabled {
		if rl.UseRedis && a.redis != nil {
			api.Use(middleware.RedisRateLimitMiddleware(a.redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second))
		} else {
			api.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}
	handler.New(a.docs).Register(api)
	handlers.NewSessionHandler(a.users, a.blacklist).Register(api)
	return r
}

// ready returns 200 only when critical dependencies are available.
func (a *App) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]bool{"store": a.store.Ping(ctx) == nil}
	if a.cfg.Redis.Addr() != "" {
		deps["redis"] = a.redis != nil && a.redis.Ping(ctx).Err() == nil
	}
	ready := true
	for _, ok := range deps {
		ready = ready && ok
	}
	body := gin.H{"deps": deps, "uptime": time.Since(a.started).String()}
	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}
	if a.mongo != nil {
		_ = a.mongo.Disconnect(ctx)
	}
}

// Store returns the opened document store.
func (a *App) Store() *Store { return a.store }
