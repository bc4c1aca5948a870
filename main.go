package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"visionchat/internal/api"
	"visionchat/internal/auth"
	"visionchat/internal/config"
	"visionchat/internal/logger"
	"visionchat/internal/redis"
	"visionchat/internal/service/ai"
	"visionchat/internal/service/assistant"
	"visionchat/internal/service/usage"
	"visionchat/internal/session"
	"visionchat/internal/storage"
	"visionchat/internal/worker"
)

var (
	configPath string
	listenAddr string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "visionchat",
	Short: "Multimodal Gemini chat apps served over HTTP",
	Long: `visionchat hosts four small assistant apps backed by a generative model:
image Q&A, calorie analysis of food photos, invoice Q&A with history,
and a streaming text chat.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("VISIONCHAT_CONFIG"), "path to the JSON config file")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address, overrides the config file")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging and gin debug mode")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listenAddr != "" {
		cfg.Server.Address = listenAddr
	}
	cfg.Debug = cfg.Debug || debug

	log := logger.New(cfg.Debug)
	defer log.Sync()

	store, closeStore, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder, closeDB, err := openUsage(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	client, err := ai.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init model client: %w", err)
	}

	dispatcher := worker.NewDispatcher(cfg.Worker.MinWorkers, cfg.Worker.MaxWorkers, cfg.Worker.QueueSize, cfg.WorkerIdleTimeout(), log)
	defer dispatcher.Close()

	assistantService, err := assistant.NewService(client, store, dispatcher, recorder, log, cfg.RequestTimeout())
	if err != nil {
		return fmt.Errorf("init assistant service: %w", err)
	}
	authService := auth.NewService(store, cfg.SessionTTL(), cfg.Server.SecureCookies, func(app string) bool {
		_, ok := assistant.Lookup(app)
		return ok
	})
	handlers := api.NewHandler(assistantService, authService, recorder, log, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	})

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.Recovery(log), api.RequestLogger(log))
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", cfg.Server.Address),
			zap.String("provider", cfg.Model.Provider),
			zap.String("model", cfg.Model.Name),
			zap.String("session_store", cfg.Session.Store))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown", zap.Error(err))
	}
	return nil
}

func openSessionStore(cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Store != "redis" {
		return session.NewMemoryStore(cfg.Session.MaxLive, cfg.SessionTTL()), func() {}, nil
	}
	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis client: %w", err)
	}
	return session.NewRedisStore(rdb, cfg.SessionTTL()), func() { rdb.Close() }, nil
}

func openUsage(cfg *config.Config, log *zap.Logger) (usage.Recorder, func(), error) {
	db, err := storage.Open(cfg.Database)
	if errors.Is(err, storage.ErrDisabled) {
		log.Info("usage ledger disabled")
		return usage.Nop{}, func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db, cfg.Database.Driver); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	recorder, err := usage.NewSQLRecorder(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return recorder, func() { db.Close() }, nil
}
