package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/risterz/pantrypal-ai/pkg/enhancer"
	"github.com/risterz/pantrypal-ai/pkg/store"
)

const clearAllPhrase = "DELETE ALL"

func uploadRecord(ctx context.Context, a *app, record models.EnhancementRecord) error {
	if record.RecipeID == "" {
		return errors.New("a recipe ID is required to upload")
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := st.Upload(ctx, record)
	if err != nil {
		return fmt.Errorf("%w: %w", enhancer.ErrStore, err)
	}

	color.Green("✓ Uploaded %d enhancements for recipe %s", result.Saved, record.RecipeID)
	if result.Failed > 0 {
		color.Red("  %d enhancements failed to upload", result.Failed)
	}
	return nil
}

func uploadCMD(a *app) *cobra.Command {
	var recipeID string

	cmd := &cobra.Command{
		Use:   "upload <record.json>",
		Short: "Upload a saved record to the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := enhancer.LoadRecord(args[0])
			if err != nil {
				return err
			}
			if recipeID != "" {
				record.RecipeID = recipeID
			}
			return uploadRecord(cmd.Context(), a, record)
		},
	}

	cmd.Flags().StringVar(&recipeID, "id", "", "Recipe ID (overrides the one in the file)")
	return cmd
}

func viewCMD(a *app) *cobra.Command {
	var scraped bool

	cmd := &cobra.Command{
		Use:   "view <recipe-id>",
		Short: "Show the stored enhancements for a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if scraped {
				s, err := st.GetScraped(ctx, args[0])
				if err != nil {
					return fmt.Errorf("%w: %w", enhancer.ErrStore, err)
				}
				color.Cyan("Scraped enhancements for recipe %s (%s):", s.RecipeID, s.SourceURL)
				printPoints(s.Enhancements)
				return nil
			}

			e, err := st.GetRecipeEnhancement(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", enhancer.ErrStore, err)
			}
			printRecipeEnhancement(e)
			return nil
		},
	}

	cmd.Flags().BoolVar(&scraped, "scraped", false, "Show scraped enhancements instead of generated ones")
	return cmd
}

func printRecipeEnhancement(e *models.RecipeEnhancement) {
	color.Cyan("Recipe %s", e.RecipeID)
	fmt.Printf("  ID:       %s\n", e.ID)
	fmt.Printf("  Created:  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated:  %s\n", e.UpdatedAt.Format("2006-01-02 15:04:05"))
	if len(e.DietaryPreferences) > 0 {
		fmt.Printf("  Dietary:  %s\n", strings.Join(e.DietaryPreferences, ", "))
	}

	color.Cyan("\nEnhancements:")
	printPoints(e.Enhancements)

	if len(e.Categorized) > 0 {
		categories := make([]string, 0, len(e.Categorized))
		for c := range e.Categorized {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			color.Cyan("\n%s:", c)
			printPoints(e.Categorized[c])
		}
	}
}

func deleteCMD(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <recipe-id>",
		Short: "Delete the generated enhancement for a recipe so it is regenerated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete the enhancement for recipe %s? [y/N]: ", args[0]), "y") {
				color.Yellow("Cancelled")
				return nil
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.DeleteRecipeEnhancement(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				color.Yellow("No enhancement found for recipe %s", args[0])
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: %w", enhancer.ErrStore, err)
			}
			color.Green("✓ Deleted %d enhancement(s) for recipe %s", n, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func clearAllCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-all",
		Short: "Delete every generated enhancement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			color.Red("This deletes ALL generated enhancements for every recipe.")
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Type %q to confirm: ", clearAllPhrase), clearAllPhrase) {
				color.Yellow("Cancelled")
				return nil
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.ClearAll(ctx)
			if err != nil {
				return fmt.Errorf("%w: %w", enhancer.ErrStore, err)
			}
			color.Green("✓ Deleted %d enhancements", n)
			return nil
		},
	}
}

func similarCMD(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <text>",
		Short: "Find stored tips closest in meaning to text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			tips, err := st.SimilarTips(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("%w: %w", enhancer.ErrStore, err)
			}
			if len(tips) == 0 {
				color.Yellow("No similar tips found")
				return nil
			}
			for i, t := range tips {
				fmt.Printf("%s %s %s\n", color.CyanString("%d.", i+1), t.Text,
					color.New(color.Faint).Sprintf("(recipe %s, distance %.3f)", t.RecipeID, t.Distance))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of tips (default from config)")
	return cmd
}

// confirm prints prompt and reports whether the answer equals want. A single
// letter want is compared without case.
func confirm(in io.Reader, out io.Writer, prompt, want string) bool {
	fmt.Fprint(out, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.TrimSpace(answer)
	if len(want) == 1 {
		return strings.EqualFold(answer, want)
	}
	return answer == want
}
