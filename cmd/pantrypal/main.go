package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	cfgPkg "github.com/risterz/pantrypal-ai/pkg/config"
	"github.com/risterz/pantrypal-ai/pkg/enhancer"
	"github.com/risterz/pantrypal-ai/pkg/llm"
	"github.com/risterz/pantrypal-ai/pkg/logging"
	"github.com/risterz/pantrypal-ai/pkg/processor"
	"github.com/risterz/pantrypal-ai/pkg/scraper"
	"github.com/risterz/pantrypal-ai/pkg/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	verbose    bool

	config *cfgPkg.Config
	log    zerolog.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "pantrypal",
		Short:         "Scrape, clean and store recipe enhancement tips",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		scrapeCMD(a),
		batchCMD(a),
		cleanCMD(a),
		manualCMD(a),
		uploadCMD(a),
		viewCMD(a),
		deleteCMD(a),
		clearAllCMD(a),
		similarCMD(a),
		diagnoseCMD(a),
		serveCMD(a),
	)

	if err := root.Execute(); err != nil {
		color.Red("Error: %v", err)
		if kind := enhancer.Classify(err); kind != enhancer.KindUnknown {
			color.Red("(%s error)", kind)
		}
		os.Exit(1)
	}
}

func (a *app) load() error {
	a.log = logging.New(a.verbose)

	cfg, err := cfgPkg.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	a.config = cfg
	return nil
}

func (a *app) newScraper(batch bool, onProgress func(string)) *scraper.Scraper {
	timeout := a.config.Scraper.Timeout
	if batch {
		timeout = a.config.Scraper.BatchTimeout
	}
	return scraper.NewWithConfig(scraper.ScraperConfig{
		Timeout:       timeout,
		UserAgent:     a.config.Scraper.UserAgent,
		RateLimit:     a.config.Scraper.RateLimit,
		RespectRobots: a.config.Scraper.RespectRobots,
		OnProgress:    onProgress,
		Logger:        a.log,
	})
}

// invocationTimeout bounds one shared enhancement: a fetch plus, when
// refining, one cleaner call.
func (a *app) invocationTimeout() time.Duration {
	return a.config.Scraper.Timeout + a.config.LLM.Timeout
}

// newCleaner returns llm.ErrNoAPIKey when no key is configured.
func (a *app) newCleaner() (*llm.Cleaner, error) {
	return llm.NewCleanerWithConfig(llm.CleanerConfig{
		APIKey:      a.config.LLM.APIKey,
		BaseURL:     a.config.LLM.BaseURL,
		Model:       a.config.LLM.Model,
		Temperature: a.config.LLM.Temperature,
		MaxTokens:   a.config.LLM.MaxTokens,
		Timeout:     a.config.LLM.Timeout,
		Logger:      a.log,
	})
}

// newPipeline attaches a cleaner when refine is set.
func (a *app) newPipeline(refine bool) (*enhancer.Pipeline, error) {
	config := enhancer.PipelineConfig{
		Processor: processor.ProcessorConfig{
			MinLength:           a.config.Pipeline.MinLength,
			SimilarityThreshold: a.config.Pipeline.SimilarityThreshold,
			MaxPoints:           a.config.Pipeline.MaxPoints,
		},
		Logger: a.log,
	}
	if refine {
		cleaner, err := a.newCleaner()
		if err != nil {
			return nil, err
		}
		config.Cleaner = cleaner
	}
	return enhancer.NewWithConfig(config), nil
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.config.Database.URL == "" {
		return nil, errors.New("no database configured: set DATABASE_URL or database.url")
	}

	config := store.StoreConfig{
		ConnString:  a.config.Database.URL,
		VectorDim:   a.config.Database.VectorDim,
		SearchLimit: a.config.Database.SearchLimit,
		Logger:      a.log,
	}
	if a.config.Database.VectorDim > 0 {
		embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
			Model:      a.config.Embedder.Model,
			BaseURL:    a.config.Embedder.BaseURL,
			Dimensions: a.config.Embedder.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		config.Embedder = embedder
	}

	st, err := store.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", enhancer.ErrStore, err)
	}
	return st, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("recipes"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printPoints(points []string) {
	if len(points) == 0 {
		color.Yellow("No enhancements found")
		return
	}
	for i, p := range points {
		fmt.Printf("%s %s\n", color.CyanString("%d.", i+1), p)
	}
}
