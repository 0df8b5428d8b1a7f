package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"meal-shopper/internal/app"
	"meal-shopper/internal/render"
)

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <recipe-id>...",
		Short: "Add the ingredients of one or more recipes to the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.app.AddRecipes(cmd.Context(), c.list, args)
			printAdded(cmd.OutOrStdout(), results)
			return err
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <url>",
		Short: "Import the ingredients of a recipe web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.ImportPage(cmd.Context(), c.list, args[0])
			if res.RecipeID != "" {
				printAdded(cmd.OutOrStdout(), []app.AddResult{res})
			}
			return err
		},
	}
}

func printAdded(w io.Writer, results []app.AddResult) {
	for _, res := range results {
		fmt.Fprintf(w, "Added %d %s from %s\n", res.Added, plural(res.Added, "item", "items"), res.RecipeName)
	}
	if n := len(results); n > 0 {
		count := results[n-1].Count
		fmt.Fprintf(w, "The list now has %d %s.\n", count, plural(count, "item", "items"))
	}
}

func (c *cli) listCmd() *cobra.Command {
	var showIDs, showRecipes bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the shopping list sorted by ingredient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.List(cmd.Context(), c.list)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.List(st.SortedView(), showIDs))
			if showRecipes {
				fmt.Fprint(cmd.OutOrStdout(), render.Recipes(st.Recipes()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showIDs, "ids", false, "Show item ids (for remove)")
	cmd.Flags().BoolVar(&showRecipes, "recipes", false, "Show the recipes the items come from")
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove one item from the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.List(cmd.Context(), c.list)
			if err != nil {
				return err
			}
			removed, err := st.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No item %q on the list.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s. %d left.\n", args[0], st.ItemCount())
			return nil
		},
	}
}

func (c *cli) removeRecipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-recipe <recipe-id>",
		Short: "Remove every item contributed by a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.List(cmd.Context(), c.list)
			if err != nil {
				return err
			}
			removed, err := st.RemoveByRecipe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s. %d left.\n", removed, plural(removed, "item", "items"), st.ItemCount())
			return nil
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the shopping list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.List(cmd.Context(), c.list)
			if err != nil {
				return err
			}
			if err := st.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Shopping list cleared.")
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
