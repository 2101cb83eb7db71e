package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/risterz/pantrypal-ai/pkg/diagnose"
)

func diagnoseCMD(a *app) *cobra.Command {
	var recipeID string

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check the database, the chat API and the deployed enhance endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			color.Cyan("PantryPal Enhancement Debug Tool")
			fmt.Println(strings.Repeat("=", 50))

			config := diagnose.Config{
				Env: map[string]string{
					"DATABASE_URL":     a.config.Database.URL,
					"DEEPSEEK_API_KEY": a.config.LLM.APIKey,
				},
				Model:    a.config.LLM.Model,
				Endpoint: a.config.Diagnose.Endpoint,
				Timeout:  a.config.LLM.Timeout,
				Logger:   a.log,
			}
			if a.config.LLM.APIKey != "" {
				config.Chat = diagnose.NewChatClient(a.config.LLM.APIKey, a.config.LLM.BaseURL)
			}

			if a.config.Database.URL != "" {
				st, err := a.openStore(ctx)
				if err != nil {
					printCheck(diagnose.Check{Name: "database connection", Err: err})
				} else {
					defer st.Close()
					check := diagnose.Check{Name: "database connection", OK: true, Detail: "all tables reachable"}
					if err := st.Ping(ctx); err != nil {
						check = diagnose.Check{Name: "database connection", Err: err}
					} else {
						config.Store = st
					}
					printCheck(check)
				}
			}

			d := diagnose.NewWithConfig(config)

			color.Cyan("\nEnvironment:")
			report := diagnose.Report{Env: d.CheckEnv()}
			for _, v := range report.Env {
				if v.Found {
					fmt.Printf("  %s %s\n", color.GreenString("✓"), v.Name)
				} else {
					fmt.Printf("  %s %s missing\n", color.RedString("✗"), v.Name)
				}
			}

			fmt.Println()
			report.Lookup = d.LookupRecipe(ctx, recipeID)
			printCheck(report.Lookup)

			spinner := getSpinner("Testing chat API...")
			report.LLM = d.ProbeLLM(ctx)
			spinner.Finish()
			fmt.Fprint(os.Stderr, "\r")
			printCheck(report.LLM)

			spinner = getSpinner("Testing enhance endpoint...")
			report.Endpoint = d.ProbeEndpoint(ctx)
			spinner.Finish()
			fmt.Fprint(os.Stderr, "\r")
			printCheck(report.Endpoint)

			verdict := report.Verdict()
			fmt.Println("\n" + strings.Repeat("=", 50))
			color.Cyan("DIAGNOSIS:")
			if report.LLM.OK && report.Endpoint.OK {
				color.Green(verdict.Summary)
			} else {
				color.Red(verdict.Summary)
			}
			for i, s := range verdict.Suggestions {
				fmt.Printf("  %d. %s\n", i+1, s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recipeID, "recipe", "", "Recipe ID whose stored enhancement to look up")
	return cmd
}

func printCheck(c diagnose.Check) {
	switch {
	case c.Skipped:
		fmt.Printf("%s %s: skipped (%s)\n", color.YellowString("-"), c.Name, c.Detail)
	case c.OK:
		fmt.Printf("%s %s: %s\n", color.GreenString("✓"), c.Name, c.Detail)
	default:
		detail := c.Detail
		if c.Err != nil {
			if detail != "" {
				detail += ": "
			}
			detail += c.Err.Error()
		}
		fmt.Printf("%s %s: %s\n", color.RedString("✗"), c.Name, detail)
	}
}
