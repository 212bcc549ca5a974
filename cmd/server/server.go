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

	"wa-relay-server/internal/config"
	"wa-relay-server/internal/db"
	"wa-relay-server/internal/eventlog"
	"wa-relay-server/internal/handlers"
	"wa-relay-server/internal/keepalive"
	"wa-relay-server/internal/media"
	"wa-relay-server/internal/models"
	"wa-relay-server/internal/services"
	"wa-relay-server/internal/whatsapp"
	"wa-relay-server/pkg/logger"
	"wa-relay-server/router"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server is the relay HTTP server together with the resources it owns
type Server struct {
	*http.Server
	store     db.Store
	redis     *redis.Client
	keepAlive *keepalive.Pinger
}

// SetupServer initializes and returns a configured HTTP server
func SetupServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s := &Server{store: store}

	var uploader media.Uploader
	if cfg.Media.CloudinaryURL != "" {
		cld, err := media.NewCloudinaryUploader(cfg.Media.CloudinaryURL, cfg.Media.Folder)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("failed to initialize media uploader: %w", err)
		}
		uploader = cld
	} else {
		logger.Warn("Media uploads disabled, inbound images will be discarded")
	}

	events := newEventLog(ctx, cfg, s)

	if cfg.KeepAlive.URL != "" {
		pinger, err := keepalive.New(cfg.KeepAlive.URL, cfg.KeepAlive.Schedule, cfg.KeepAlive.Timeout.Std())
		if err != nil {
			s.release()
			return nil, err
		}
		if err := pinger.Start(); err != nil {
			s.release()
			return nil, err
		}
		s.keepAlive = pinger
	}

	client := whatsapp.NewClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken, cfg.WhatsApp.Timeout.Std())

	// Initialize services
	registrations := store.Registrations()
	retention := services.NewRetentionPolicy(store.Chats(), cfg.Chat.MaxMessages)
	chatService := services.NewChatService(store.Chats(), retention, client, cfg.WhatsApp.CountryCode)
	mediaService := services.NewMediaService(registrations, client, uploader)
	webhookService := services.NewWebhookService(
		services.NewClassifier(registrations),
		chatService,
		mediaService,
		events,
		cfg.WhatsApp.VerifyToken,
	)
	registry := services.NewTemplateRegistry(cfg.Templates.Descriptors, cfg.Templates.AllowUnknown, cfg.Templates.DefaultLanguage)
	bulkService := services.NewBulkService(
		services.NewTemplateSender(registry, client),
		store.BulkHistory(),
		cfg.Bulk.SendInterval.Std(),
		cfg.WhatsApp.CountryCode,
	)
	authService := services.NewAdminAuthService(
		cfg.Auth.AdminUsername,
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.TOTPSecret,
		cfg.Auth.Permissions,
	)

	r := router.NewRouter(cfg, router.Handlers{
		Webhook:        handlers.NewWebhookHandler(webhookService),
		RegisteredChat: handlers.NewChatHandler(chatService, models.PartitionRegistered),
		SupportChat:    handlers.NewChatHandler(chatService, models.PartitionSupport),
		Bulk:           handlers.NewBulkHandler(bulkService),
		Auth:           handlers.NewAuthHandler(cfg, authService),
		Health:         handlers.NewHealthHandler(store),
	})

	// bulk sends are paced per recipient and answer only when the batch is done
	s.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Server configured",
		zap.String("version", version),
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("auth", cfg.Auth.Enabled),
		zap.Bool("media", uploader != nil),
		zap.Bool("redis_events", s.redis != nil),
	)

	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		return db.NewMongoStore(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
	case config.DriverSQLite, "":
		return db.NewDatabase(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// newEventLog prefers Redis when configured and reachable, else an in-memory ring buffer
func newEventLog(ctx context.Context, cfg *config.Config, s *Server) eventlog.Log {
	if cfg.EventLog.RedisAddr == "" {
		return eventlog.NewRingBuffer(cfg.EventLog.Capacity)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.EventLog.RedisAddr,
		Password: cfg.EventLog.RedisPassword,
		DB:       cfg.EventLog.RedisDB,
	})
	redisLog := eventlog.NewRedisLog(rdb, cfg.EventLog.RedisKey, cfg.EventLog.Capacity)
	if err := redisLog.Ping(ctx); err != nil {
		logger.Warn("Redis unreachable, keeping webhook events in memory",
			zap.String("addr", cfg.EventLog.RedisAddr),
			zap.Error(err))
		if closeErr := rdb.Close(); closeErr != nil {
			logger.Warn("Failed to close redis client", zap.Error(closeErr))
		}
		return eventlog.NewRingBuffer(cfg.EventLog.Capacity)
	}

	s.redis = rdb
	return redisLog
}

// release stops background jobs and closes the store and redis client
func (s *Server) release() {
	if s.keepAlive != nil {
		s.keepAlive.Stop()
		s.keepAlive = nil
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
		s.redis = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
		s.store = nil
	}
}

// Close stops the HTTP server immediately and releases its resources
func (s *Server) Close() error {
	var err error
	if s.Server != nil {
		err = s.Server.Close()
	}
	s.release()
	return err
}

// StartServer starts the HTTP server and handles graceful shutdown
func StartServer(srv *Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	return StartServerWithContext(ctx, srv)
}

// StartServerWithContext starts the HTTP server with a context for shutdown control
func StartServerWithContext(ctx context.Context, srv *Server) error {
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	defer srv.release()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
