package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"

	"papla-server-go/internal/domain/eventbus"
	"papla-server-go/internal/domain/sequence"
	"papla-server-go/internal/domain/session"
	sessionstore "papla-server-go/internal/domain/session/store"
	platformconfig "papla-server-go/internal/platform/config"
	platformerrors "papla-server-go/internal/platform/errors"
	platformlogging "papla-server-go/internal/platform/logging"
	platformstorage "papla-server-go/internal/platform/storage"
	httptransport "papla-server-go/internal/transport/http"
	httpwebapi "papla-server-go/internal/transport/http/webapi"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>Papla Server API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger
	repo       *platformstorage.Repository
	sessions   *session.Manager
	sequencer  *sequence.Sequencer
}

// Run starts the whole service lifecycle: configuration, dependencies,
// the HTTP server and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.sessions == nil || state.sequencer == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"session manager/sequencer not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := state.sessions.Shutdown(shutdownCtx); err != nil {
			logger.WarnTag("BOOT", "session store did not close cleanly: %v", err)
		}
		eventbus.Shutdown()
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "server stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation order")
	for _, step := range steps {
		logger.InfoTag("BOOT", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph declares the startup steps and their dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "eventbus:init-history",
			Title:     "Attach history recorder",
			DependsOn: []string{"storage:init-database", "logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initHistoryStep,
		},
		{
			ID:        "session:init-manager",
			Title:     "Initialise session manager",
			DependsOn: []string{"storage:init-database", "logging:init-provider"},
			Kind:      platformerrors.KindSession,
			Execute:   initSessionStep,
		},
		{
			ID:        "sequence:init",
			Title:     "Initialise audio sequencer",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initSequencerStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	platformlogging.DefaultLogger = logger

	logger.InfoTag("BOOT", "logging ready [%s] config from %s",
		state.config.Log.Level, state.configPath)
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.InitDatabase(state.config.Storage.DataDir)
	if err != nil {
		return err
	}
	state.repo = platformstorage.NewRepository(db)
	return nil
}

func initHistoryStep(_ context.Context, state *appState) error {
	recorder := eventbus.NewHistoryRecorder(state.repo, state.logger)
	if err := recorder.Register(eventbus.GetAsync()); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "eventbus:init-history", "failed to attach history recorder", err)
	}
	return nil
}

func initSessionStep(_ context.Context, state *appState) error {
	manager, err := initSessionManager(state.config, state.logger)
	if err != nil {
		return err
	}
	state.sessions = manager
	return nil
}

func initSequencerStep(_ context.Context, state *appState) error {
	runner := sequence.NewRunner(state.config.Sequence.FFmpegPath)
	if state.config.Sequence.SilenceTimeout > 0 {
		runner.SilenceTimeout = time.Duration(state.config.Sequence.SilenceTimeout) * time.Second
	}
	if state.config.Sequence.ConcatTimeout > 0 {
		runner.ConcatTimeout = time.Duration(state.config.Sequence.ConcatTimeout) * time.Second
	}

	state.sequencer = sequence.NewSequencer(runner, sequence.Options{
		GapMinSeconds: state.config.Sequence.GapMinSeconds,
		GapMaxSeconds: state.config.Sequence.GapMaxSeconds,
		SampleRate:    state.config.Sequence.SampleRate,
		ChannelLayout: state.config.Sequence.ChannelLayout,
	}, state.logger)

	// an absent ffmpeg is reported per-request, but warn early
	if err := runner.Check(context.Background()); err != nil {
		state.logger.WarnTag("BOOT", "ffmpeg is not available: %v", err)
	}
	return nil
}

func initSessionManager(config *platformconfig.Config, logger *platformlogging.Logger) (*session.Manager, error) {
	storeType := strings.ToLower(strings.TrimSpace(config.Session.Store.Type))
	storeCfg := sessionstore.Config{
		Driver: storeType,
		TTL:    config.Session.Store.Expiry,
	}

	cleanupInterval := config.Session.Store.Cleanup
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	switch storeCfg.Driver {
	case "", sessionstore.DriverMemory:
		storeCfg.Driver = sessionstore.DriverMemory
		if config.Session.Store.Memory.Cleanup > 0 {
			cleanupInterval = config.Session.Store.Memory.Cleanup
		}
		storeCfg.Memory = &sessionstore.MemoryConfig{
			GCInterval: cleanupInterval,
		}
	case "database", sessionstore.DriverSQLite:
		storeCfg.Driver = sessionstore.DriverSQLite
		storeCfg.SQLite = &sessionstore.SQLiteConfig{
			DSN: config.Session.Store.SQLite.DSN,
		}
	case sessionstore.DriverRedis:
		storeCfg.Redis = &sessionstore.RedisConfig{
			Addr:     config.Session.Store.Redis.Addr,
			Username: config.Session.Store.Redis.Username,
			Password: config.Session.Store.Redis.Password,
			DB:       config.Session.Store.Redis.DB,
			Prefix:   config.Session.Store.Redis.Prefix,
		}
		if storeCfg.Redis.Addr == "" {
			return nil, platformerrors.New(
				platformerrors.KindBootstrap,
				"session:init-manager",
				"redis store addr is required",
			)
		}
	default:
		logger.WarnTag("SESSION", "unsupported store type %s, falling back to memory", storeType)
		storeCfg.Driver = sessionstore.DriverMemory
		storeCfg.Memory = &sessionstore.MemoryConfig{GCInterval: cleanupInterval}
	}

	storeDeps := sessionstore.Dependencies{
		SQLiteDB: platformstorage.GetDB(),
	}
	sessionStore, err := sessionstore.New(storeCfg, storeDeps)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "session:init-manager", "failed to create session store", err)
	}

	token := session.NewSessionToken(config.Server.TokenSecret).WithTTL(storeCfg.TTL)
	return session.NewManager(sessionStore, token, config.Storage.DataDir, storeCfg.TTL, logger), nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:            config,
		Logger:            logger,
		SessionMiddleware: httptransport.SessionMiddleware(state.sessions),
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}

		c.File(config.Web.StaticDir + "/index.html")
	})

	webapiService, err := httpwebapi.NewService(config, logger, state.sessions, state.sequencer, state.repo)
	if err != nil {
		logger.ErrorTag("HTTP", "webapi service init failed: %v", err)
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}
	if err := webapiService.Register(groupCtx, httpRouter); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    state.config.Server.IP + ":" + strconv.Itoa(config.Web.Port),
		Handler: router,
	}

	router.GET("/openapi.json", func(c *gin.Context) {
		doc, err := swag.ReadDoc()
		if err != nil {
			logger.ErrorTag("HTTP", "failed to generate openapi spec: %v", err)
			c.JSON(http.StatusInternalServerError, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{"error": err.Error()},
				Message: "failed to generate openapi spec",
				Code:    http.StatusInternalServerError,
			})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	})

	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
	})

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://localhost:%d", config.Web.Port)
		logger.InfoTag("HTTP", "api docs at http://localhost:%d/docs", config.Web.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "received signal %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}
