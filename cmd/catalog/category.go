package main

import (
	"fmt"

	"catalog-sync/internal/model"

	"github.com/spf13/cobra"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories", "cat"},
	GroupID: "catalog",
	Short:   "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		c, err := current.engine.CreateCategory(cmd.Context(), model.Category{
			Name:        args[0],
			Description: description,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", c.ID, syncMark(c.Metadata))
		return nil
	},
}

var categoryUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change a category's name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := current.engine.GetCategory(ctx, args[0])
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("name") {
			c.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("description") {
			c.Description, _ = cmd.Flags().GetString("description")
		}

		c, err = current.engine.UpdateCategory(ctx, *c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", c.ID, syncMark(c.Metadata))
		return nil
	},
}

var categoryRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Delete a category",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.engine.DeleteCategory(cmd.Context(), args[0])
	},
}

var categoryLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List categories",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		watching, _ := cmd.Flags().GetBool("watch")

		ctx, stop := listContext(cmd.Context(), watching)
		defer stop()

		updates, err := current.engine.GetAllCategories(ctx)
		if err != nil {
			return err
		}
		return stream(ctx, updates, watching, func(categories []model.Category) error {
			if asJSON {
				return printJSON(cmd.OutOrStdout(), categories)
			}
			return printCategories(cmd.OutOrStdout(), categories)
		})
	},
}

func init() {
	categoryAddCmd.Flags().String("description", "", "category description")
	categoryUpdateCmd.Flags().String("name", "", "new name")
	categoryUpdateCmd.Flags().String("description", "", "new description")
	categoryLsCmd.Flags().Bool("json", false, "print JSON")
	categoryLsCmd.Flags().Bool("watch", false, "keep printing as the local store changes")

	categoryCmd.AddCommand(categoryAddCmd, categoryUpdateCmd, categoryRmCmd, categoryLsCmd)
	rootCmd.AddCommand(categoryCmd)
}
