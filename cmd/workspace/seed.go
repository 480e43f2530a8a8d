package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phoneme/workspace/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load users, projects and tasks from a YAML file",
	Long: `Load fixture data for local development.

Users are upserted by email and projects by name. Tasks whose title already
exists are skipped, so the same file can be applied repeatedly.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed YAML file (defaults to SEED_FILE)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	path := seedFile
	if path == "" {
		path = cfg.SeedFile
	}
	if path == "" {
		return fmt.Errorf("no seed file: pass --file or set SEED_FILE")
	}

	ctx := cmd.Context()
	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := applySeedFile(ctx, s, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded from %s\n", path)
	return nil
}

func applySeedFile(ctx context.Context, s *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seed, err := store.LoadSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := s.ApplySeed(ctx, seed); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	return nil
}
