package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/listingmatch/backend/config"
	"github.com/listingmatch/backend/internal/observability"
	"github.com/listingmatch/backend/internal/usecase"
)

// app carries state shared by the subcommands
type app struct {
	configFile string
	workers    int

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "listingmatch",
		Short: "Match product listings to a product catalog",
		Long: `listingmatch assigns free-text product listings to the catalog product they
describe, first resolving the manufacturer and then the model. Listings that
cannot be assigned with confidence are left unmatched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().IntVarP(&a.workers, "workers", "w", 0, "number of matching workers (overrides config)")

	rootCmd.AddCommand(newMatchCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.workers > 0 {
		cfg.Matching.Workers = a.workers
	}

	a.cfg = cfg
	a.logger = observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "listingmatch",
	})
	return nil
}

// matchConfig converts the loaded configuration into classifier settings
func (a *app) matchConfig() usecase.MatchConfig {
	m := a.cfg.Matching
	return usecase.MatchConfig{
		ManufacturerMargin: m.ManufacturerMargin,
		ModelMargin:        m.ModelMargin,
		SmallWordSize:      m.SmallWordSize,
		Workers:            m.Workers,
		IgnorableWords:     m.IgnorableWords,
		ExplicitMargins:    true,
	}
}
