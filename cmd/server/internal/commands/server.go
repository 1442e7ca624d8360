package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"gopkg.in/yaml.v3"

	"github.com/reporthere/reporthere/internal/auth"
	"github.com/reporthere/reporthere/internal/claims"
	"github.com/reporthere/reporthere/internal/events"
	"github.com/reporthere/reporthere/internal/inbox"
	"github.com/reporthere/reporthere/internal/logger"
	"github.com/reporthere/reporthere/internal/notify"
	"github.com/reporthere/reporthere/internal/server"
	"github.com/reporthere/reporthere/internal/store"
	memorystore "github.com/reporthere/reporthere/internal/store/memory"
	postgresstore "github.com/reporthere/reporthere/internal/store/postgres"
	"github.com/reporthere/reporthere/internal/telemetry"
	"github.com/reporthere/reporthere/internal/uploads"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"REPORTHERE_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"REPORTHERE_CORS_ORIGINS"`

	// Authentication configuration
	JWTPublicKey string `help:"path to PEM-encoded ES256 public key for bearer tokens" env:"REPORTHERE_JWT_PUBLIC_KEY" type:"existingfile"`
	NoAuth       bool   `help:"disable authentication for API endpoints (development only)" default:"false" env:"REPORTHERE_NO_AUTH"`

	// Notification configuration
	MailConfig string `help:"path to SMTP config file (YAML); omit to log emails instead of sending" env:"REPORTHERE_MAIL_CONFIG" type:"existingfile"`
	AdminEmail string `help:"moderation address for flagged-evidence alerts" default:"moderation@reporthere.dev" env:"REPORTHERE_ADMIN_EMAIL"`

	// Upload configuration
	UploadDir string `help:"directory for evidence uploads" default:"uploads" env:"REPORTHERE_UPLOAD_DIR"`

	// Operational modes
	Tracing bool `help:"enable tracing" default:"false" env:"REPORTHERE_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"REPORTHERE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Outbox        OutboxFlags        `embed:"" prefix:"outbox-"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"REPORTHERE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// OutboxFlags configures the email delivery worker.
type OutboxFlags struct {
	PollInterval  time.Duration `help:"outbox poll interval" default:"5s" env:"REPORTHERE_OUTBOX_POLL_INTERVAL"`
	BatchSize     int           `help:"max messages delivered per poll" default:"10"`
	MaxAttempts   int           `help:"delivery attempts before a message is failed" default:"3"`
	RatePerMinute int           `help:"max outbound emails per minute" default:"60"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, "reporthere-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	stores, cleanup, err := c.buildStores(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Notification pipeline: outbox queue, delivery worker, trigger
	// engine.
	sender, err := c.buildSender()
	if err != nil {
		return err
	}

	outbox := notify.NewOutbox(stores.Outbox)
	worker := notify.NewWorker(stores.Outbox, sender, notify.WorkerConfig{
		PollInterval:  c.Outbox.PollInterval,
		BatchSize:     c.Outbox.BatchSize,
		MaxAttempts:   c.Outbox.MaxAttempts,
		RatePerMinute: c.Outbox.RatePerMinute,
	})
	worker.Start()
	defer worker.Stop()

	dispatcher := notify.NewDispatcher(outbox, stores.Members, c.AdminEmail)

	// Platform services
	eventLog := events.New(stores.Events)
	claimsSvc := claims.New(stores.Companies, stores.Claims, stores.Members, stores.Subscriptions, outbox)
	inboxSvc := inbox.New(stores.Companies, stores.Complaints, stores.Members, eventLog, dispatcher)

	uploadStore, err := uploads.New(c.UploadDir)
	if err != nil {
		return err
	}

	authn, err := c.buildAuthn()
	if err != nil {
		return err
	}
	if c.NoAuth {
		log.Warn().Msg("Authentication is disabled (--no-auth). This should only be used in development!")
	}

	srv := server.NewServer(claimsSvc, inboxSvc, eventLog, stores.Companies, uploadStore, dispatcher, authn)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   c.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           7200,
	})

	handler := gzhttp.GzipHandler(corsHandler.Handler(srv.Handler(log)))

	httpServer := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", c.Listen).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildStores wires either the in-memory or the PostgreSQL store set.
func (c *ServerCmd) buildStores(ctx context.Context) (*store.Stores, func(), error) {
	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return nil, nil, err
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.Config{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
			AutoMigrate:     c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		return &store.Stores{
			Companies:     postgresstore.NewCompanyStore(pool),
			Claims:        postgresstore.NewClaimStore(pool),
			Members:       postgresstore.NewMemberStore(pool),
			Subscriptions: postgresstore.NewSubscriptionStore(pool),
			Events:        postgresstore.NewEventStore(pool),
			Complaints:    postgresstore.NewComplaintStore(pool),
			Outbox:        postgresstore.NewOutboxStore(pool),
		}, pool.Close, nil

	default:
		return &store.Stores{
			Companies:     memorystore.NewCompanyStore(),
			Claims:        memorystore.NewClaimStore(),
			Members:       memorystore.NewMemberStore(),
			Subscriptions: memorystore.NewSubscriptionStore(),
			Events:        memorystore.NewEventStore(),
			Complaints:    memorystore.NewComplaintStore(),
			Outbox:        memorystore.NewOutboxStore(),
		}, func() {}, nil
	}
}

// buildSender returns the SMTP sender when a mail config is provided,
// otherwise the log sender.
func (c *ServerCmd) buildSender() (notify.Sender, error) {
	if c.MailConfig == "" {
		return &notify.LogSender{}, nil
	}

	raw, err := os.ReadFile(c.MailConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to read mail config: %w", err)
	}

	var cfg notify.SMTPConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse mail config: %w", err)
	}

	return notify.NewSMTPSender(cfg)
}

func (c *ServerCmd) buildAuthn() (func(http.Handler) http.Handler, error) {
	if c.NoAuth {
		return nil, nil
	}
	if c.JWTPublicKey == "" {
		return nil, errors.New("a JWT public key is required unless --no-auth is set")
	}

	pem, err := os.ReadFile(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWT public key: %w", err)
	}

	verifier, err := auth.NewVerifier(string(pem))
	if err != nil {
		return nil, err
	}
	return verifier.Middleware(), nil
}
