package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"projector-server/cache"
	"projector-server/confs"
	"projector-server/handlers"
	httpHandler "projector-server/handlers/http"
	"projector-server/repositories"
	"projector-server/usecases"
	"projector-server/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	app     *gin.Engine
	cfg     *confs.Config
	log     *zap.Logger
	manager *ws.Manager
	auth    *usecases.AuthUseCase
}

func NewServer(cfg *confs.Config, store repositories.Store, log *zap.Logger) *Server {
	s := &Server{
		app:     gin.New(),
		cfg:     cfg,
		log:     log,
		manager: ws.NewManager(log.Named("ws")),
	}
	s.setup(store)
	return s
}

func (s *Server) setup(store repositories.Store) {
	s.app.Use(gin.Recovery(), httpHandler.RequestLogger(s.log.Named("http")))

	config := cors.DefaultConfig()
	if len(s.cfg.Server.CORSOrigins) == 0 || (len(s.cfg.Server.CORSOrigins) == 1 && s.cfg.Server.CORSOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = s.cfg.Server.CORSOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User", "X-Request-ID"}
	s.app.Use(cors.New(config))

	s.app.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	// Use cases
	catalog := cache.NewCommandCatalog(s.cfg.Catalog.CacheTTL)
	policy := usecases.NewLifecyclePolicy(usecases.LifecycleFromConf(s.cfg.Lifecycle))
	ucLog := s.log.Named("usecases")
	eventsUseCase := usecases.NewEventsUseCase(store, catalog, policy, ucLog, usecases.WithNotifier(s.manager))
	commandsUseCase := usecases.NewCommandsUseCase(store, catalog, policy, ucLog)
	projectorsUseCase := usecases.NewProjectorsUseCase(store, ucLog)
	s.auth = usecases.NewAuthUseCase(store.Users(), s.cfg.Auth.JWTSecret(), s.cfg.Auth.TokenTTL, s.cfg.Auth.Issuer, ucLog)

	// Handlers
	hLog := s.log.Named("http")
	eventsHandler := httpHandler.NewEventsHandler(eventsUseCase, hLog)
	projectorsHandler := httpHandler.NewProjectorsHandler(projectorsUseCase, hLog)
	commandsHandler := httpHandler.NewCommandsHandler(commandsUseCase, hLog)
	loginHandler := httpHandler.NewLoginHandler(s.auth, hLog)
	cacheHandler := handlers.NewCacheHandler(commandsUseCase)
	wsHandler := handlers.NewWSHandler(s.manager, projectorsUseCase, hLog)

	auth := s.app.Group("/auth")
	{
		auth.POST("/login", loginHandler.Login)
	}

	// Agent routes, called by the classroom microcontrollers.
	agents := s.app.Group("/projectors")
	{
		agents.GET("/server-events", eventsHandler.Poll)
		agents.PUT("/server-events", eventsHandler.UpdateStatus)
		agents.GET("/config-params", eventsHandler.ConfigParams)
		agents.GET("/agents/ws", wsHandler.HandleAgentWS)
	}

	// Console routes
	console := s.app.Group("/projectors", httpHandler.Identity(s.auth, s.cfg.Auth.Enabled, hLog))
	{
		console.POST("/server-events-batch", eventsHandler.CreateBatch)
		console.POST("/server-events", eventsHandler.Search)
		console.GET("/event-states", eventsHandler.EventStates)
		console.GET("/events-overview", eventsHandler.Overview)

		console.GET("/projectors", projectorsHandler.List)
		console.POST("/projectors", projectorsHandler.Create)
		console.DELETE("/projectors", projectorsHandler.Delete)
		console.DELETE("/projectors-all", projectorsHandler.DeleteAll)
		console.GET("/floors", projectorsHandler.Floors)
		console.GET("/classrooms", projectorsHandler.Classrooms)
		console.GET("/general-overview", projectorsHandler.Overview)

		console.GET("/commands", commandsHandler.List)
		console.POST("/commands", commandsHandler.Create)
		console.DELETE("/commands", commandsHandler.Delete)
		console.GET("/actions", commandsHandler.Actions)
		console.GET("/projector-models", commandsHandler.Models)

		console.GET("/catalog-cache/stats", cacheHandler.GetCacheStats)
		console.POST("/catalog-cache/flush", cacheHandler.Flush)
		console.GET("/agents/connected", wsHandler.GetConnectedAgents)
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.app }

// Bootstrap creates the configured operator account, if any.
func (s *Server) Bootstrap(ctx context.Context) error {
	a := s.cfg.Auth
	if a.BootstrapEmail == "" {
		return nil
	}
	if err := s.auth.EnsureOperator(ctx, a.BootstrapEmail, a.BootstrapPassword); err != nil {
		return fmt.Errorf("bootstrap operator: %w", err)
	}
	return nil
}

// Start serves until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", s.cfg.Server.Port),
		Handler: s.app,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	s.manager.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
