package main

import (
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/risterz/pantrypal-ai/pkg/enhancer"
)

func batchCMD(a *app) *cobra.Command {
	var (
		outDir string
		clean  bool
		toDB   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <recipes.json>",
		Short: "Scrape every recipe in a JSON list of {id, title, url}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			recipes, err := enhancer.LoadBatch(args[0])
			if err != nil {
				return err
			}
			color.Blue("Processing %d recipes", len(recipes))

			pipeline, err := a.newPipeline(false)
			if err != nil {
				return err
			}

			bar := getProgressBar(len(recipes), "Scraping recipes...")
			fetcher := a.newScraper(true, func(url string) {
				bar.Describe(color.CyanString("Fetching %s", url))
			})

			config := enhancer.BatchConfig{
				Service: enhancer.NewService(enhancer.ServiceConfig{
					Fetcher:  fetcher,
					Pipeline: pipeline,
					Logger:   a.log,
				}),
				OutputDir: outDir,
				Delay:     a.config.Scraper.Delay,
				Clean:     clean,
				Logger:    a.log,
			}

			if toDB {
				st, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				config.Saver = st
			}

			config.OnProgress = func(done, total int, entry models.BatchEntry) {
				bar.Add(1)
				if entry.Status != "success" {
					a.log.Debug().Str("recipe_id", entry.ID).Msg(entry.Error)
				}
			}

			log, err := enhancer.NewBatch(config).Run(ctx, recipes)
			bar.Finish()
			if err != nil {
				return err
			}

			color.Green("\n✓ Batch scraping completed")
			color.Green("  Successful: %d", log.Successful)
			if log.Failed > 0 {
				color.Red("  Failed: %d", log.Failed)
				for _, entry := range log.Recipes {
					if entry.Status != "success" {
						color.Red("    %s (%s): %s", entry.Title, entry.ID, entry.Error)
					}
				}
			}
			color.Cyan("  Results in %s, log in %s", outDir, filepath.Join(outDir, enhancer.BatchLogName))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", enhancer.BatchResultsDir, "Directory for result files and the batch log")
	cmd.Flags().BoolVar(&clean, "clean", false, "Run the full pipeline instead of saving normalized fragments")
	cmd.Flags().BoolVar(&toDB, "db", false, "Also save each recipe to the database")
	return cmd
}
