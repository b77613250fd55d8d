package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/listingmatch/backend/internal/infrastructure/jsonl"
	"github.com/listingmatch/backend/internal/usecase"
)

func newMatchCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "match <products> <listings> <output>",
		Short: "Match a listings file against a products file",
		Long: `Reads the product catalog and the listings (one JSON object per line; the
listings argument may be a glob such as "listings/**/*.txt"), matches every
listing and writes one line per product with the listings assigned to it.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			logger := a.logger

			products, err := jsonl.LoadProducts(args[0])
			if err != nil {
				return fmt.Errorf("load products: %w", err)
			}
			listings, err := jsonl.LoadListings(args[1])
			if err != nil {
				return fmt.Errorf("load listings: %w", err)
			}
			logger.Info().
				Int("products", len(products)).
				Int("listings", len(listings)).
				Msg("input loaded")

			service := usecase.NewMatchingService(products, a.matchConfig(), logger)

			var progress *progressReporter
			if !quiet {
				progress = newProgressReporter(cmd.ErrOrStderr(), len(listings))
				service.SetProgressReporter(progress)
			}

			result, report, err := service.Match(cmd.Context(), listings)
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return fmt.Errorf("match listings: %w", err)
			}

			if err := jsonl.SaveResults(args[2], result); err != nil {
				return fmt.Errorf("save results: %w", err)
			}

			elapsed := time.Since(start)
			logger.Info().
				Str("run_id", report.RunID).
				Str("output", args[2]).
				Int("assigned", report.Assigned).
				Int("unmatched", report.Unmatched).
				Dur("elapsed", elapsed).
				Msg("results written")

			fmt.Fprintf(cmd.OutOrStdout(), "Done in %dms\n", elapsed.Milliseconds())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show a progress bar")

	return cmd
}
