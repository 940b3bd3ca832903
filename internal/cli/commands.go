package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

func newMigrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				n, err := b.Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			})
		},
	}
}

func newSeedCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the default ten-day itinerary into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				seeded, err := b.Seed(ctx)
				if err != nil {
					return err
				}
				if seeded {
					fmt.Fprintln(cmd.OutOrStdout(), "itinerary seeded")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "store already holds days; nothing to do")
				}
				return nil
			})
		},
	}
}

func newImportCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Import days from a JSON export",
		Long: `Import days from a JSON file. The file holds either an array of days or an
object {"days": [...]}. Coordinates stored as strings are accepted and queued
for geocoding. Days whose id already exists are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := readDaysFile(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				n, err := b.Import(ctx, days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d day(s)\n", n)
				return nil
			})
		},
	}
}

func newUserCmd(open Opener) *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage accounts"}

	var email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Long:  "Create an account. The password is read from TRIP_PASSWORD when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("TRIP_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("a password is required (--password or TRIP_PASSWORD)")
			}
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				u, err := b.AddUser(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&email, "email", "", "account email")
	add.Flags().StringVar(&password, "password", "", "account password")
	_ = add.MarkFlagRequired("email")

	user.AddCommand(add)
	return user
}

func newGeocodeCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode",
		Short: "Resolve coordinates for every activity that has an address but none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				res, err := b.Geocode(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "candidates=%d updated=%d failed=%d skipped=%d\n",
					res.Candidates, res.Updated, res.Failed, res.Skipped)
				return nil
			})
		},
	}
}

func newExportCmd(open Opener) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the itinerary as a flat table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("--format must be csv or json, got %q", format)
			}
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				rows, err := b.Export(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("export: %w", err)
					}
					defer f.Close()
					w = f
				}
				return writeRows(w, format, rows)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func writeRows(w io.Writer, format string, rows []domain.ExportRow) error {
	if format == "csv" {
		return service.WriteCSV(w, rows)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// readDaysFile reads days from path, or from stdin when path is "-".
func readDaysFile(stdin io.Reader, path string) ([]domain.Day, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return decodeDays(data)
}

// decodeDays accepts [...] or {"days":[...]}.
func decodeDays(data []byte) ([]domain.Day, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var days []domain.Day
		if err := json.Unmarshal(data, &days); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		return days, nil
	}
	var doc struct {
		Days []domain.Day `json:"days"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if len(doc.Days) == 0 {
		return nil, fmt.Errorf("import: no days found")
	}
	return doc.Days, nil
}
