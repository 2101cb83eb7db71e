package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/risterz/pantrypal-ai/pkg/enhancer"
	"github.com/risterz/pantrypal-ai/pkg/processor"
	"github.com/risterz/pantrypal-ai/pkg/sites"
)

// recordFlags are shared by the commands that produce a record.
type recordFlags struct {
	id     string
	title  string
	out    string
	save   bool
	upload bool
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "Recipe ID")
	cmd.Flags().StringVar(&f.title, "title", "", "Recipe title")
	cmd.Flags().BoolVar(&f.save, "save", false, "Save the enhancements to a JSON file")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "File to save to (default <title>_enhancements.json)")
	cmd.Flags().BoolVar(&f.upload, "upload", false, "Upload the enhancements to the database (needs --id)")
}

// finish saves and uploads record as the flags ask.
func (f *recordFlags) finish(ctx context.Context, a *app, record models.EnhancementRecord) error {
	if f.save || f.out != "" {
		path := f.out
		if path == "" {
			path = enhancer.RecordFileName(record.RecipeTitle)
		}
		if err := enhancer.SaveRecord(path, record); err != nil {
			return err
		}
		color.Green("✓ Saved %d enhancements to %s", len(record.Enhancements), path)
	}

	if f.upload {
		return uploadRecord(ctx, a, record)
	}
	return nil
}

func scrapeCMD(a *app) *cobra.Command {
	var (
		flags  recordFlags
		site   string
		raw    bool
		refine bool
	)

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Extract enhancement tips from a recipe page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := args[0]

			siteID := sites.Detect(url)
			if site != "" {
				var err error
				if siteID, err = sites.Parse(site); err != nil {
					return err
				}
			}

			pipeline, err := a.newPipeline(refine)
			if err != nil {
				return err
			}
			fetcher := a.newScraper(false, nil)

			spinner := getSpinner(fmt.Sprintf("Scraping %s (%s)...", url, siteID))
			doc, err := fetcher.Fetch(ctx, url)
			spinner.Finish()
			fmt.Fprint(os.Stderr, "\r")
			if err != nil {
				return err
			}

			var points []string
			if raw {
				points = pipeline.Scrape(doc, siteID)
			} else {
				points = pipeline.Run(doc, siteID)
			}

			if refine {
				result := pipeline.Refine(ctx, flags.title, points)
				if result.Err != nil {
					color.Yellow("Cleaning failed, keeping scraped points: %v", result.Err)
				}
				points = result.Points
			}

			color.Cyan("Enhancements from %s:", url)
			printPoints(points)

			return flags.finish(ctx, a, models.EnhancementRecord{
				RecipeID:     flags.id,
				RecipeTitle:  flags.title,
				SourceURL:    url,
				Enhancements: points,
				ScrapedAt:    time.Now(),
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&site, "site", "", "Site layout to use: "+sites.Names()+" (default detected from the URL)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Only extract and normalize, skip sentence filtering and ranking")
	cmd.Flags().BoolVar(&refine, "refine", false, "Send the points to the cleaning service")
	return cmd
}

func cleanCMD(a *app) *cobra.Command {
	var (
		out    string
		useLLM bool
	)

	cmd := &cobra.Command{
		Use:   "clean <record.json>",
		Short: "Filter, deduplicate and rank the enhancements in a saved record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := enhancer.LoadRecord(args[0])
			if err != nil {
				return err
			}

			pipeline, err := a.newPipeline(useLLM)
			if err != nil {
				return err
			}

			points := pipeline.Clean(record.Enhancements)
			if useLLM {
				spinner := getSpinner("Cleaning with the language model...")
				result := pipeline.Refine(cmd.Context(), record.RecipeTitle, record.Enhancements)
				spinner.Finish()
				fmt.Fprint(os.Stderr, "\r")
				if result.Err != nil {
					color.Yellow("Cleaning service failed, using local cleaning: %v", result.Err)
				} else {
					points = result.Points
				}
			}

			color.Cyan("Cleaned %d points into %d:", len(record.Enhancements), len(points))
			printPoints(points)

			if out == "" {
				return nil
			}
			record.Enhancements = points
			if err := enhancer.SaveRecord(out, record); err != nil {
				return err
			}
			color.Green("✓ Saved to %s", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the cleaned record to this file")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Use the external cleaning service")
	return cmd
}

func manualCMD(a *app) *cobra.Command {
	var (
		flags     recordFlags
		sourceURL string
	)

	cmd := &cobra.Command{
		Use:   "manual [file]",
		Short: "Turn hand-written enhancements, one per line, into a record",
		Long:  "Reads enhancements one per line from file, or from stdin when no file is given. Numbering and bullets are stripped.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read enhancements: %w", err)
			}

			points := processor.ParseManual(string(data))
			if len(points) == 0 {
				return errors.New("no valid enhancements found")
			}

			printPoints(points)

			flags.save = true
			return flags.finish(cmd.Context(), a, models.EnhancementRecord{
				RecipeID:     flags.id,
				RecipeTitle:  flags.title,
				SourceURL:    sourceURL,
				Enhancements: points,
				ScrapedAt:    time.Now(),
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&sourceURL, "url", "", "Source URL")
	return cmd
}
