// Package app wires configuration, stores, services and routes into one
// runnable HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/daybook/daybook/handlers"
	"github.com/daybook/daybook/internal/config"
	"github.com/daybook/daybook/internal/database"
	"github.com/daybook/daybook/internal/entry/handler"
	"github.com/daybook/daybook/internal/entry/repository"
	"github.com/daybook/daybook/internal/entry/service"
	"github.com/daybook/daybook/internal/export"
	"github.com/daybook/daybook/internal/insights"
	"github.com/daybook/daybook/internal/oidc"
	"github.com/daybook/daybook/internal/storage"
	"github.com/daybook/daybook/internal/users"
	"github.com/daybook/daybook/pkg/logger"
	"github.com/daybook/daybook/pkg/metrics"
	"github.com/daybook/daybook/pkg/middleware"
)

// App owns every long-lived dependency of the server.
type App struct {
	cfg     *config.Config
	started time.Time

	mongo *mongo.Client
	pg    *sqlx.DB
	redis *redis.Client
	blobs *storage.MinIOStorage

	entryRepo repository.Repository
	entries   service.Service
	users     *users.Service
	verifier  middleware.Verifier
	registry  *prometheus.Registry

	engine *gin.Engine
}

// errNoAuth is returned for every token when neither OIDC nor a JWT secret is configured.
var errNoAuth = errors.New("authentication is not configured")

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (middleware.Token, error) {
	return nil, errNoAuth
}

// New connects the configured backends and builds the gin engine. Optional
// backends (Redis, MinIO, OIDC discovery) degrade with a warning; the selected
// entry store must be reachable.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg, started: time.Now(), registry: prometheus.NewRegistry()}
	if err := a.connectStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.connectOptional(ctx)
	a.verifier = a.buildVerifier(ctx)

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []service.Option{service.WithLocation(loc)}
	if a.redis != nil {
		cache := insights.NewRedisCache(a.redis, "", cfg.Insights.CacheTTL)
		opts = append(opts, service.WithCache(cache), service.WithNotifier(service.Notifiers{cache}))
	}
	a.entries = service.New(a.entryRepo, opts...)

	metrics.RegisterCollectors(a.registry)
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.engine = a.routes()
	return a, nil
}

func (a *App) connectStores(ctx context.Context) error {
	cfg := a.cfg
	if cfg.MongoDB.URI != "" {
		var errConn error
		a.mongo, errConn = database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if errConn != nil {
			if cfg.Store.Driver == config.StoreMongo {
				return errConn
			}
			logger.Warnf("could not connect to MongoDB; user records stay in memory: %v", errConn)
		}
	}

	userRepo := users.UserRepository(users.NewMemoryUserRepository())
	if a.mongo != nil {
		db := a.mongo.Database(cfg.MongoDB.Database)
		userRepo = users.NewMongoUserRepository(db.Collection("users"))
	}
	a.users = users.NewService(userRepo)

	switch cfg.Store.Driver {
	case config.StoreMongo:
		if a.mongo == nil {
			return errors.New("STORE_DRIVER=mongo requires MONGODB_URI")
		}
		a.entryRepo = repository.NewMongoRepo(a.mongo.Database(cfg.MongoDB.Database).Collection("entries"))
	case config.StorePostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("STORE_DRIVER=postgres requires POSTGRES_DSN")
		}
		db, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return err
		}
		a.pg = db
		a.entryRepo = repository.NewPostgresRepo(db)
	default:
		logger.Warnf("using the in-memory entry store; entries are lost on restart")
		a.entryRepo = repository.NewMemoryRepo()
	}
	logger.Infof("entry store: %s", cfg.Store.Driver)
	return nil
}

func (a *App) connectOptional(ctx context.Context) {
	cfg := a.cfg
	if addr := cfg.Redis.Addr(); addr != "" {
		client, err := database.ConnectRedis(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warnf("Redis unavailable, insights cache and shared rate limiting disabled: %v", err)
		} else {
			a.redis = client
			logger.Infof("Connected to Redis: %s", addr)
		}
	}
	if cfg.MinIO.Enabled() {
		blobs, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("MinIO unavailable, exports disabled: %v", err)
		} else {
			a.blobs = blobs
		}
	}
}

func (a *App) buildVerifier(ctx context.Context) middleware.Verifier {
	cfg := a.cfg
	if cfg.OIDC.URL != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer(), cfg.OIDC.ClientID)
		if err == nil {
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		ver, err := oidc.NewHMACVerifier(cfg.JWT.Secret)
		if err == nil {
			logger.Infof("accepting HS256 tokens signed with JWT_SECRET")
			return ver
		}
	}
	logger.Warnf("no token verifier available; /api rejects every request")
	return rejectAll{}
}

func (a *App) checks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"auth": func(context.Context) error {
			if _, ok := a.verifier.(rejectAll); ok {
				return errNoAuth
			}
			return nil
		},
	}
	if a.mongo != nil {
		checks["mongo"] = func(ctx context.Context) error { return a.mongo.Ping(ctx, nil) }
	}
	if a.pg != nil {
		checks["postgres"] = a.pg.PingContext
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.blobs != nil {
		checks["minio"] = a.blobs.Ping
	}
	return checks
}

func (a *App) routes() *gin.Engine {
	if a.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	handlers.RegisterHealth(r, a.started, a.checks())
	handlers.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api", middleware.AuthMiddleware(a.verifier))
	// limiter runs after auth so buckets are per owner
	if rl := a.cfg.RateLimit; rl.Enabled {
		if rl.UseRedis && a.redis != nil {
			api.Use(middleware.RedisRateLimitMiddleware(a.redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second))
		} else {
			api.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}
	handler.RegisterEntryRoutes(api, a.entries)
	handlers.NewUserHandler(a.users).Register(api)
	if a.blobs != nil {
		export.RegisterRoutes(api, export.NewExporter(a.entries, a.blobs, a.cfg.MinIO.PresignTTL))
	}
	return r
}

// Handler exposes the engine, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Migrate creates the Postgres schema and the Mongo indexes that exist for
// the configured stores. It is idempotent.
func (a *App) Migrate(ctx context.Context) error {
	switch repo := a.entryRepo.(type) {
	case *repository.PostgresRepo:
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
	case *repository.MongoRepo:
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	if a.mongo != nil {
		col := a.mongo.Database(a.cfg.MongoDB.Database).Collection("users")
		if err := users.NewMongoUserRepository(col).EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure user indexes: %w", err)
		}
	}
	return nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("Starting daybook on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases every connection that was opened.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.mongo != nil {
		_ = a.mongo.Disconnect(ctx)
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
