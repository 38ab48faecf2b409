package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/eventhub-saas/eventhub/internal/db"
	adminapi "github.com/eventhub-saas/eventhub/internal/http/api/admin"
	"github.com/eventhub-saas/eventhub/internal/http/api/front"
	fronthandlers "github.com/eventhub-saas/eventhub/internal/http/api/front/handlers"
	"github.com/eventhub-saas/eventhub/internal/http/middleware"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/mail"
	"github.com/eventhub-saas/eventhub/internal/photos"
	"github.com/eventhub-saas/eventhub/internal/plansync"
	"github.com/eventhub-saas/eventhub/internal/ratelimit"
	"github.com/eventhub-saas/eventhub/internal/session"
	internalsettings "github.com/eventhub-saas/eventhub/internal/settings"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MediaPrefix is where locally stored photos are served from.
const MediaPrefix = "/media/photos"

// settingsRefreshInterval bounds how stale the in-memory settings snapshot may get
// on instances that did not handle the admin write.
const settingsRefreshInterval = 30 * time.Second

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer boots the API server with database-backed components and blocks until ctx ends.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	serverCfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	if serverCfg.Port <= 0 {
		serverCfg.Port = defaultPort
	}
	if !serverCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("initial settings refresh failed")
	}

	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	var initState atomic.Bool
	initState.Store(initialized)

	jwtConfig, _ := config.LoadJWTConfig(configPath)
	if strings.TrimSpace(jwtConfig.Secret) == "" {
		log.Warn("jwt secret is empty; admin login is disabled until one is configured")
	}
	authCfg, err := config.LoadAuthConfig(configPath)
	if err != nil {
		return err
	}
	emailCfg, err := config.LoadEmailConfig(configPath)
	if err != nil {
		return err
	}
	storageCfg, err := config.LoadStorageConfig(configPath)
	if err != nil {
		return err
	}
	corsCfg, err := config.LoadCORSConfig(configPath)
	if err != nil {
		return err
	}
	plansCfg, err := config.LoadPlansConfig(configPath)
	if err != nil {
		return err
	}

	verifier, closeVerifier, err := session.NewVerifier(ctx, authCfg)
	if err != nil {
		return fmt.Errorf("build session verifier: %w", err)
	}
	defer closeVerifier()

	photoStore, err := photos.NewStore(storageCfg, MediaPrefix)
	if err != nil {
		return fmt.Errorf("build photo store: %w", err)
	}

	limiter := ratelimit.NewManager(nil, nil, nil)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.WithError(errClose).Warn("close rate limiter failed")
		}
	}()

	engine := NewEngine(EngineDeps{
		DB:          conn,
		DSN:         dsn,
		JWT:         jwtConfig,
		Verifier:    verifier,
		PhotoStore:  photoStore,
		Sender:      mail.NewSender(emailCfg),
		AppURL:      emailCfg.AppURL,
		RateLimiter: limiter,
		CORS:        corsCfg,
		InitState:   &initState,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go refreshSettingsLoop(runCtx, conn)
	plansync.NewSyncer(conn, plansCfg).Start(runCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting eventhub on %s (config=%s)", srv.Addr, configPath)
		if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errCh <- errListen
		}
		close(errCh)
	}()

	select {
	case errListen, ok := <-errCh:
		if ok {
			return errListen
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Error("server shutdown error")
		return errShutdown
	}
	log.Info("server stopped")
	return nil
}

// EngineDeps collects everything the HTTP engine needs.
type EngineDeps struct {
	DB          *gorm.DB
	DSN         string
	JWT         config.JWTConfig
	Verifier    session.Verifier
	PhotoStore  photos.Store
	Sender      mail.Sender
	AppURL      string
	RateLimiter *ratelimit.Manager
	CORS        config.CORSConfig
	InitState   *atomic.Bool
}

// NewEngine builds the gin engine with middleware and every route group.
func NewEngine(deps EngineDeps) *gin.Engine {
	response.RegisterJSONTagNames()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Recovery())
	engine.Use(cors.New(corsConfig(deps.CORS)))

	adminapi.RegisterAdminRoutes(engine, deps.DB, deps.JWT)
	front.RegisterFrontRoutes(engine, front.Deps{
		DB:          deps.DB,
		Verifier:    deps.Verifier,
		PhotoStore:  deps.PhotoStore,
		Sender:      deps.Sender,
		AppURL:      deps.AppURL,
		RateLimiter: deps.RateLimiter,
	})

	if disk, ok := deps.PhotoStore.(*photos.DiskStore); ok {
		engine.Static(MediaPrefix, disk.Dir())
	}

	initState := deps.InitState
	if initState == nil {
		initState = &atomic.Bool{}
	}
	engine.GET("/v0/init/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, InitStatusResponse{Initialized: initState.Load()})
	})
	engine.GET("/v0/init/prefill", func(c *gin.Context) {
		prefill, errPrefill := initPrefillFromDSN(deps.DSN)
		if errPrefill != nil {
			c.JSON(http.StatusOK, gin.H{"locked": true})
			return
		}
		if deps.DB != nil {
			state, errState := LoadInitState(deps.DB)
			if errState != nil {
				log.WithError(errState).Warn("load init state for prefill failed")
			} else {
				prefill = prefill.withState(state)
			}
		}
		c.JSON(http.StatusOK, struct {
			Locked bool `json:"locked"`
			initPrefill
		}{Locked: true, initPrefill: prefill})
	})
	engine.POST("/v0/init/setup", func(c *gin.Context) {
		state, errState := LoadInitState(deps.DB)
		if errState != nil {
			response.Fail(c, http.StatusInternalServerError, "check admin status failed")
			return
		}
		if !state.FreePlan {
			if errSeed := db.EnsureDefaultPlans(deps.DB); errSeed != nil {
				log.WithError(errSeed).Error("reseed default plans failed")
				response.Fail(c, http.StatusInternalServerError, "seed plans failed")
				return
			}
		}
		if state.Admins > 0 {
			initState.Store(true)
			response.Fail(c, http.StatusBadRequest, "system already initialized")
			return
		}

		var req AdminSetupRequest
		if errBind := c.ShouldBindJSON(&req); errBind != nil {
			response.BindError(c, errBind)
			return
		}
		if errCreate := CreateAdminUserWithConn(deps.DB, strings.TrimSpace(req.AdminUsername), req.AdminPassword, req.SiteName); errCreate != nil {
			log.WithError(errCreate).Error("create first admin failed")
			response.Fail(c, http.StatusInternalServerError, "create admin failed")
			return
		}
		if errRefresh := internalsettings.Refresh(c.Request.Context(), deps.DB); errRefresh != nil {
			log.WithError(errRefresh).Warn("refresh settings snapshot failed")
		}
		initState.Store(true)
		response.OK(c, http.StatusOK, gin.H{"message": "initialization successful"})
	})

	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "not found")
	})
	return engine
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	out := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader, fronthandlers.ActiveEventHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		out.AllowAllOrigins = true
		out.AllowCredentials = false
		return out
	}
	out.AllowOrigins = cfg.AllowedOrigins
	return out
}

func refreshSettingsLoop(ctx context.Context, conn *gorm.DB) {
	ticker := time.NewTicker(settingsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil && ctx.Err() == nil {
				log.WithError(errRefresh).Warn("periodic settings refresh failed")
			}
		}
	}
}
