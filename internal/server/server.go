package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"openaigateway/internal/auth"
	"openaigateway/internal/config"
	"openaigateway/internal/core"
	"openaigateway/internal/gateway"
	"openaigateway/internal/metrics"
	"openaigateway/internal/modelconfig"
	"openaigateway/internal/registry"
	"openaigateway/internal/util"

	"github.com/gin-gonic/gin"
)

// Server application server
type Server struct {
	port    string
	ginMode string

	httpClient *http.Client
	router     *gin.Engine

	backends       *config.BackendSet
	fetcher        *registry.RestyFetcher
	registry       *registry.Registry
	gateway        *gateway.Gateway
	auth           *auth.Authenticator
	metricsService *metrics.MetricsService
	modelConfigs   *modelconfig.CachedStore
	modelFilter    map[string]bool

	closers []io.Closer
	config  config.ServerConfig

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required in ServerConfig")
	}

	backends := config.NewBackendSet(cfg.EnableOpenAIAPI, cfg.BaseURLs, cfg.APIKeys)
	settings, err := cfg.Storage.LoadSettings()
	if err != nil {
		cfg.Logger.Warn("Failed to load persisted settings: %v", err)
	} else if settings != nil {
		backends.ApplySettings(settings)
		cfg.Logger.Info("Restored persisted settings: %d backends, enabled=%v", backends.Len(), backends.Enabled())
	}

	httpClient := createOptimizedHTTPClient(cfg.HTTPClientSettings)

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})
	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	fetcher := registry.NewRestyFetcher(cfg.ModelListTimeout)
	reg := registry.New(registry.Options{
		Backends: backends,
		Fetcher:  fetcher,
		TTL:      core.ModelCacheTTL,
		Logger:   cfg.Logger,
		Metrics:  metricsService,
	})

	store, closers, err := openModelConfigStores(context.Background(), cfg)
	if err != nil {
		_ = fetcher.Close()
		_ = metricsService.Close()
		return nil, fmt.Errorf("failed to open model config store: %w", err)
	}
	modelConfigs := modelconfig.NewCachedStore(store, core.ModelConfigCacheTTL).WithMetrics(metricsService)

	gw := gateway.New(gateway.Options{
		Catalog:      reg,
		Backends:     backends,
		ModelConfigs: modelConfigs,
		HTTPClient:   httpClient,
		Timeout:      cfg.UpstreamTimeout,
		Referer:      cfg.OpenRouterReferer,
		Title:        cfg.OpenRouterTitle,
		Logger:       cfg.Logger,
		Metrics:      metricsService,
	})

	authenticator := auth.New(auth.Config{
		ClientKeys: cfg.ClientAPIKeys,
		AdminKeys:  cfg.AdminAPIKeys,
		JWTSecret:  cfg.JWTSecret,
	})
	if !authenticator.Configured() {
		cfg.Logger.Warn("No client credentials configured")
	}

	modelFilter := make(map[string]bool, len(cfg.ModelFilterList))
	for _, id := range cfg.ModelFilterList {
		modelFilter[id] = true
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:           cfg.Port,
		ginMode:        cfg.GinMode,
		httpClient:     httpClient,
		backends:       backends,
		fetcher:        fetcher,
		registry:       reg,
		gateway:        gw,
		auth:           authenticator,
		metricsService: metricsService,
		modelConfigs:   modelConfigs,
		modelFilter:    modelFilter,
		closers:        closers,
		config:         cfg,
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	server.setupRoutes()

	return server, nil
}

// openModelConfigStores opens the configured file and SQLite stores. The file
// store is consulted first.
func openModelConfigStores(ctx context.Context, cfg config.ServerConfig) (core.ModelConfigStore, []io.Closer, error) {
	var stores modelconfig.MultiStore
	var closers []io.Closer

	if cfg.ModelConfigPath != "" {
		fileStore, err := modelconfig.NewFileStore(cfg.ModelConfigPath)
		if err != nil {
			return nil, nil, err
		}
		cfg.Logger.Info("Loaded %d model configs from %s", fileStore.Len(), cfg.ModelConfigPath)
		stores = append(stores, fileStore)
	}

	if cfg.ModelConfigDB != "" {
		sqliteStore, err := modelconfig.OpenSQLiteStore(ctx, cfg.ModelConfigDB)
		if err != nil {
			return nil, nil, err
		}
		cfg.Logger.Info("Using model config database %s", cfg.ModelConfigDB)
		stores = append(stores, sqliteStore)
		closers = append(closers, sqliteStore)
	}

	return stores, closers, nil
}

func createOptimizedHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: settings.ResponseHeaderTimeout,
		DisableCompression:    false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}

// Preload warms the model catalog.
func (s *Server) Preload(ctx context.Context) {
	catalog := s.registry.ListMergedCatalog(ctx)
	s.config.Logger.Info("Preloaded %d models from %d backends", catalog.Len(), len(catalog.Backends))
}

// Run runs the server
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streams are bounded by the upstream timeout.
		WriteTimeout: s.config.UpstreamTimeout + 30*time.Second,
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.config.Logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.config.Logger.Info("Server starting on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
		s.shutdownCancel()
	}()
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStatsData(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	periodStats := metrics.GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)
	currentQPS := s.metricsService.GetQPS()

	var catalogCounts map[int]int
	var fetchedAt string
	if catalog := s.registry.Current(); catalog != nil {
		catalogCounts = catalog.CountByBackend()
		if !catalog.FetchedAt.IsZero() {
			fetchedAt = catalog.FetchedAt.Format(core.TimeFormatDateTime)
		}
	}
	requestCounts := metrics.BackendCounts(stats.RequestHistory)

	var backendsInfo []gin.H
	for _, backend := range s.backends.Snapshot() {
		backendsInfo = append(backendsInfo, gin.H{
			"index":    backend.Index,
			"baseUrl":  backend.BaseURL,
			"apiKey":   util.MaskKey(backend.APIKey),
			"models":   catalogCounts[backend.Index],
			"requests": requestCounts[backend.Index],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"currentTime":      time.Now().Format(core.TimeFormatDateTime),
		"currentQPS":       fmt.Sprintf("%.3f", currentQPS),
		"totalRecords":     len(stats.RequestHistory),
		"stats24h":         periodStats[24],
		"stats7d":          periodStats[24*7],
		"stats30d":         periodStats[24*30],
		"enabled":          s.backends.Enabled(),
		"catalogFetchedAt": fetchedAt,
		"backends":         backendsInfo,
	})
}

// Close closes the server. Calls after the first return the first result.
func (s *Server) Close() error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.closeResources()
	})
	return s.closeErr
}

func (s *Server) closeResources() error {
	var closeErr error

	if s.fetcher != nil {
		if err := s.fetcher.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close model fetcher: %w", err))
		}
	}

	if s.modelConfigs != nil {
		if err := s.modelConfigs.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close model config cache: %w", err))
		}
	}

	for _, closer := range s.closers {
		if err := closer.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close model config store: %w", err))
		}
	}

	if s.metricsService != nil {
		if err := s.metricsService.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close metrics service: %w", err))
		}
	}

	if s.httpClient != nil {
		s.httpClient.CloseIdleConnections()
	}

	return closeErr
}
