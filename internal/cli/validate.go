package cli

import (
	"fmt"
	"io"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/emitter"
	"github.com/GabrielNunesIT/flowbase/internal/pipeline"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			if err := validate(cmd, cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if show, _ := cmd.Flags().GetBool("print"); show {
				return printConfig(out, cfg)
			}

			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Source:   %s (enabled=%t)\n", cfg.Ingestion.Source, cfg.Ingestion.Enabled)
			fmt.Fprintf(out, "  Mode:     %s\n", cfg.Ingestion.Mode)
			return nil
		},
	}

	cmd.Flags().Bool("print", false, "print the effective configuration as YAML (secrets redacted)")
	return cmd
}

// validate checks the parts of cfg a run would reject. Object storage
// clients are not built, so no network access happens.
func validate(cmd *cobra.Command, cfg *config.Config) error {
	if _, err := config.ParseMode(cfg.Ingestion.Mode); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	source, err := config.ParseSourceType(cfg.Ingestion.Source)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if _, err := cfg.Ingestion.Resolve(source); err != nil {
		return fmt.Errorf("configuration error: %s: %w", source, err)
	}

	for name, format := range map[string]string{
		"stdout": cfg.Emitters.Stdout.Format,
		"file":   cfg.Emitters.File.Format,
	} {
		if err := emitter.CheckFormat(format); err != nil {
			return fmt.Errorf("configuration error: %s emitter: %w", name, err)
		}
	}

	// Create a silent logger for validation (discards output)
	log := logger.NewConsoleLogger(io.Discard)

	disabled := *cfg
	disabled.Ingestion.Enabled = false
	if _, err := pipeline.New(cmd.Context(), &disabled, log); err != nil {
		return fmt.Errorf("pipeline configuration error: %w", err)
	}
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
