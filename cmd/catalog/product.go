package main

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var productCmd = &cobra.Command{
	Use:     "product",
	Aliases: []string{"products", "prod"},
	GroupID: "catalog",
	Short:   "Manage products",
}

var productAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := model.Product{Name: args[0]}
		if err := applyProductFlags(cmd, &p); err != nil {
			return err
		}

		created, err := current.engine.CreateProduct(cmd.Context(), p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", created.ID, syncMark(created.Metadata))
		return nil
	},
}

var productUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change product fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := current.engine.GetProduct(ctx, args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			p.Name, _ = cmd.Flags().GetString("name")
		}
		if err := applyProductFlags(cmd, p); err != nil {
			return err
		}

		p, err = current.engine.UpdateProduct(ctx, *p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.ID, syncMark(p.Metadata))
		return nil
	},
}

var productRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Delete a product",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.engine.DeleteProduct(cmd.Context(), args[0])
	},
}

var productLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List products",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		watching, _ := cmd.Flags().GetBool("watch")
		categoryID, _ := cmd.Flags().GetString("category")

		ctx, stop := listContext(cmd.Context(), watching)
		defer stop()

		var (
			updates <-chan []model.Product
			err     error
		)
		if categoryID != "" {
			updates, err = current.engine.GetProductsByCategory(ctx, categoryID)
		} else {
			updates, err = current.engine.GetAllProducts(ctx)
		}
		if err != nil {
			return err
		}
		return stream(ctx, updates, watching, func(products []model.Product) error {
			if asJSON {
				return printJSON(cmd.OutOrStdout(), products)
			}
			return printProducts(cmd.OutOrStdout(), products)
		})
	},
}

// applyProductFlags copies the explicitly set flags onto p.
func applyProductFlags(cmd *cobra.Command, p *model.Product) error {
	flags := cmd.Flags()
	if flags.Changed("description") {
		p.Description, _ = flags.GetString("description")
	}
	if flags.Changed("price") {
		raw, _ := flags.GetString("price")
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", raw, err)
		}
		p.Price = price
	}
	if flags.Changed("category") {
		p.CategoryID, _ = flags.GetString("category")
	}
	if flags.Changed("stock") {
		p.Stock, _ = flags.GetInt("stock")
	}
	return nil
}

// listContext returns a context that, when watching, also ends on interrupt.
func listContext(parent context.Context, watching bool) (context.Context, context.CancelFunc) {
	if watching {
		return notifyContext(parent)
	}
	return context.WithCancel(parent)
}

// stream prints the first emission, then every later one while watching.
func stream[T any](ctx context.Context, updates <-chan T, watching bool, emit func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-updates:
			if !ok {
				return nil
			}
			if err := emit(v); err != nil {
				return err
			}
			if !watching {
				return nil
			}
		}
	}
}

func init() {
	for _, c := range []*cobra.Command{productAddCmd, productUpdateCmd} {
		c.Flags().String("description", "", "product description")
		c.Flags().String("price", "0", "unit price")
		c.Flags().String("category", "", "category ID")
		c.Flags().Int("stock", 0, "units in stock")
	}
	productUpdateCmd.Flags().String("name", "", "new name")
	productLsCmd.Flags().String("category", "", "only products in this category")
	productLsCmd.Flags().Bool("json", false, "print JSON")
	productLsCmd.Flags().Bool("watch", false, "keep printing as the local store changes")

	productCmd.AddCommand(productAddCmd, productUpdateCmd, productRmCmd, productLsCmd)
	rootCmd.AddCommand(productCmd)
}
