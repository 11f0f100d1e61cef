package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/adres-gov/adres-gateway/pkg/authflow"
	authflowapi "github.com/adres-gov/adres-gateway/pkg/authflow/api"
	"github.com/adres-gov/adres-gateway/pkg/authstate"
	"github.com/adres-gov/adres-gateway/pkg/authz"
	"github.com/adres-gov/adres-gateway/pkg/claims"
	"github.com/adres-gov/adres-gateway/pkg/directory"
	"github.com/adres-gov/adres-gateway/pkg/idp"
	profileapi "github.com/adres-gov/adres-gateway/pkg/profile/api"
	"github.com/adres-gov/adres-gateway/pkg/tokenvalidator"
)

type ServerConfig struct {
	Host string `env:"GATEWAY_HOST" env-default:"0.0.0.0"`
	Port uint16 `env:"GATEWAY_PORT" env-default:"4000"`
	// RedirectURI is the gateway callback URL registered at the provider.
	RedirectURI string `env:"GATEWAY_REDIRECT_URI" env-default:"http://localhost:4000/callback"`
}

type IdpConfig struct {
	ServerURL    string `env:"IDP_SERVER_URL" env-required:"true"`
	ClientID     string `env:"IDP_CLIENT_ID" env-required:"true"`
	ClientSecret string `env:"IDP_CLIENT_SECRET" env-default:""`
	Scopes       string `env:"IDP_SCOPES" env-default:"openid extended_profile"`
	TimeoutSecs  int    `env:"IDP_TIMEOUT_SECONDS" env-default:"10"`
}

type StateConfig struct {
	Strategy   string `env:"STATE_STRATEGY" env-default:"stateless"`
	TTLMinutes int    `env:"STATE_TTL_MINUTES" env-default:"10"`
}

type TokenConfig struct {
	ValidationMode string `env:"TOKEN_VALIDATION_MODE" env-default:"jwks"`
	Issuer         string `env:"TOKEN_ISSUER" env-default:""`
	Audience       string `env:"TOKEN_AUDIENCE" env-default:""`
}

type DirectoryConfig struct {
	// Backend selects where directory records live: inmem (seeded demo
	// fixture), file (JSON file), or postgres.
	Backend string `env:"DIRECTORY_BACKEND" env-default:"inmem"`
	File    string `env:"DIRECTORY_FILE" env-default:"directory.json"`

	PgHost     string `env:"DIRECTORY_PG_HOST" env-default:"localhost"`
	PgPort     uint16 `env:"DIRECTORY_PG_PORT" env-default:"5432"`
	PgDatabase string `env:"DIRECTORY_PG_DATABASE" env-default:"gateway_db"`
	PgUser     string `env:"DIRECTORY_PG_USER" env-default:"gateway"`
	PgPassword string `env:"DIRECTORY_PG_PASSWORD" env-default:"pwd"`
}

func (d DirectoryConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.PgUser, d.PgPassword, d.PgHost, d.PgPort, d.PgDatabase)
}

type Config struct {
	Server    ServerConfig
	Idp       IdpConfig
	State     StateConfig
	Token     TokenConfig
	Directory DirectoryConfig
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Reject unknown mode names before any wiring happens, so a typo in the
	// environment fails the boot with one clear message.
	if !authstate.Strategy(cfg.State.Strategy).Valid() {
		slog.Error("Invalid state strategy", "strategy", cfg.State.Strategy)
		os.Exit(1)
	}
	if !tokenvalidator.Mode(cfg.Token.ValidationMode).Valid() {
		slog.Error("Invalid token validation mode", "mode", cfg.Token.ValidationMode)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idpClient, err := idp.NewClient(idp.Config{
		ServerURL:    cfg.Idp.ServerURL,
		ClientID:     cfg.Idp.ClientID,
		ClientSecret: cfg.Idp.ClientSecret,
		Scopes:       splitScopes(cfg.Idp.Scopes),
		Timeout:      time.Duration(cfg.Idp.TimeoutSecs) * time.Second,
	})
	if err != nil {
		slog.Error("Failed to create identity provider client", "error", err)
		os.Exit(1)
	}

	transport, err := authstate.NewTransport(
		authstate.Strategy(cfg.State.Strategy),
		time.Duration(cfg.State.TTLMinutes)*time.Minute,
	)
	if err != nil {
		slog.Error("Failed to create state transport", "error", err)
		os.Exit(1)
	}
	slog.Info("State transport configured", "strategy", cfg.State.Strategy)

	validator, err := tokenvalidator.New(ctx, tokenvalidator.Config{
		Mode:     tokenvalidator.Mode(cfg.Token.ValidationMode),
		Issuer:   cfg.Token.Issuer,
		Audience: cfg.Token.Audience,
	}, idpClient)
	if err != nil {
		slog.Error("Failed to create token validator", "error", err)
		os.Exit(1)
	}
	slog.Info("Token validation configured", "mode", cfg.Token.ValidationMode)

	repo, cleanup, err := buildDirectoryRepository(ctx, cfg.Directory)
	if err != nil {
		slog.Error("Failed to create directory repository", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.Info("Directory backend configured", "backend", cfg.Directory.Backend)

	dirService := directory.NewService(repo)
	enricher := claims.NewEnrichmentService(dirService)
	policies := authz.NewRegistry()
	flow := authflow.NewService(idpClient, transport, cfg.Server.RedirectURI)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	authflowapi.NewHandler(flow).RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(claims.Middleware(validator, enricher))
		profileapi.NewHandler(policies).RegisterRoutes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Gateway listening", "addr", addr, "provider", cfg.Idp.ServerURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

// buildDirectoryRepository selects the directory backend. The cleanup func
// releases backend resources on shutdown.
func buildDirectoryRepository(ctx context.Context, cfg DirectoryConfig) (directory.Repository, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "inmem":
		return directory.NewSeededInMemRepository(), noop, nil
	case "file":
		repo, err := directory.NewFileRepository(cfg.File)
		return repo, noop, err
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.toDatabaseURL())
		if err != nil {
			return nil, noop, fmt.Errorf("invalid database config: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		return directory.NewPostgresRepository(pool), pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown directory backend: %q", cfg.Backend)
	}
}

func splitScopes(s string) []string {
	return strings.Fields(s)
}
