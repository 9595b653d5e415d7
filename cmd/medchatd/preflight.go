package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"medchatd/internal/registry"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check the model artifact and host memory without loading the engine",
	RunE:  runPreflight,
}

func runPreflight(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd.Flags(), os.Getenv)
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())

	path := cfg.ModelPath
	if m, err := registry.Resolve(cfg.ModelPath); err == nil {
		path = m.Path
	}
	report := newManager(cfg, path, &log).Preflight()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Error != "" {
		return errors.New(report.Error)
	}
	return nil
}
