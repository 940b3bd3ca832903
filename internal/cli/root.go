// Package cli implements tripctl, the administration command-line interface.
// Each command opens the store, runs one operation and exits.
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pkordes/trip-planner/backend/internal/app"
	"github.com/pkordes/trip-planner/backend/internal/config"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

// Backend is what the commands operate on.
type Backend interface {
	Migrate(ctx context.Context) (int, error)
	Seed(ctx context.Context) (bool, error)
	Import(ctx context.Context, days []domain.Day) (int, error)
	AddUser(ctx context.Context, email, password string) (domain.User, error)
	Geocode(ctx context.Context) (service.EnrichResult, error)
	Export(ctx context.Context) ([]domain.ExportRow, error)
	Close()
}

// Opener connects a Backend. It runs lazily so --help never touches the store.
type Opener func(ctx context.Context) (Backend, error)

// NewRootCommand builds the command tree over open.
func NewRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "tripctl",
		Short: "Administer the trip planner store",
		Long: `tripctl runs maintenance operations against the trip planner database:
schema migrations, seeding, imports, user accounts, geocoding and exports.

It reads DATABASE_URL from the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(open),
		newSeedCmd(open),
		newImportCmd(open),
		newUserCmd(open),
		newGeocodeCmd(open),
		newExportCmd(open),
	)
	return root
}

// Execute runs tripctl against the configured database.
func Execute() error {
	return NewRootCommand(openStore).Execute()
}

// withBackend opens the backend for the duration of fn.
func withBackend(cmd *cobra.Command, open Opener, fn func(ctx context.Context, b Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}

// store is the Backend over a live database.
type store struct {
	pool *pgxpool.Pool
	app  *app.App
}

func openStore(ctx context.Context) (Backend, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	// Accounts are created here but tokens are never signed, so any
	// secret satisfies the issuer.
	if cfg.JWTSecret = os.Getenv("JWT_SECRET"); cfg.JWTSecret == "" {
		cfg.JWTSecret, err = randomSecret()
		if err != nil {
			return nil, err
		}
	}
	cfg.TokenTTL = time.Hour

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, pool, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &store{pool: pool, app: a}, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("cli: generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *store) Migrate(ctx context.Context) (int, error) { return app.Migrate(ctx, s.pool) }
func (s *store) Seed(ctx context.Context) (bool, error)   { return s.app.Trips.Seed(ctx) }
func (s *store) Import(ctx context.Context, days []domain.Day) (int, error) {
	return s.app.Trips.Import(ctx, days)
}
func (s *store) AddUser(ctx context.Context, email, password string) (domain.User, error) {
	return s.app.Auth.Register(ctx, email, password)
}
func (s *store) Geocode(ctx context.Context) (service.EnrichResult, error) {
	return s.app.Enricher.Run(ctx)
}
func (s *store) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return s.app.Export.Export(ctx)
}
func (s *store) Close() {
	s.app.Enricher.Wait()
	s.pool.Close()
}
