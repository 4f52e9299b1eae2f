package cli

import (
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// applyCLIOverrides copies explicitly set ingest flags into cfg.
// Flags override every other configuration layer.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	setString("source", &cfg.Ingestion.Source)
	setString("mode", &cfg.Ingestion.Mode)
	setString("file", &cfg.Ingestion.FilePath)
	setString("url", &cfg.Ingestion.URL)
	setString("bucket", &cfg.Ingestion.Bucket)
	setString("prefix", &cfg.Ingestion.Prefix)

	if flags.Changed("enable") {
		cfg.Ingestion.Enabled, _ = flags.GetBool("enable")
	}

	if flags.Changed("output") {
		path, _ := flags.GetString("output")
		cfg.Emitters.File.Enabled = true
		cfg.Emitters.File.Path = path
		cfg.Emitters.Stdout.Enabled = false
	}

	if flags.Changed("format") {
		format, _ := flags.GetString("format")
		cfg.Emitters.Stdout.Format = format
		cfg.Emitters.File.Format = format
	}
}
