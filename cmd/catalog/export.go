package main

import (
	"fmt"

	"catalog-sync/internal/snapshot"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "catalog",
	Short:   "Write the local catalogue as a snapshot file or S3 object",
	Long: `Write every active local record to a gzip JSON-lines snapshot.

The snapshot format is the one the API server reads at startup via SEED_PATH,
so an export can be used to seed a fresh server.

Examples:
  catalog export --out catalog.jsonl.gz
  catalog export --bucket my-bucket --key snapshots/catalog.jsonl.gz`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")
		bucket, _ := cmd.Flags().GetString("bucket")
		key, _ := cmd.Flags().GetString("key")
		region, _ := cmd.Flags().GetString("region")

		if (out == "") == (bucket == "") {
			return fmt.Errorf("exactly one of --out or --bucket is required")
		}

		categories, err := current.local.ListCategories(ctx)
		if err != nil {
			return err
		}
		products, err := current.local.ListProducts(ctx)
		if err != nil {
			return err
		}
		snap := &snapshot.Snapshot{Categories: categories, Products: products}

		if out != "" {
			if err := snapshot.WriteFile(out, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", snap.Len(), out)
			return nil
		}

		if key == "" {
			return fmt.Errorf("--key is required with --bucket")
		}
		store, err := snapshot.NewS3Store(ctx, bucket, region, current.logger)
		if err != nil {
			return err
		}
		if err := store.Save(ctx, key, snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to s3://%s/%s\n", snap.Len(), bucket, key)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "local snapshot path")
	exportCmd.Flags().String("bucket", "", "S3 bucket")
	exportCmd.Flags().String("key", "", "S3 object key")
	exportCmd.Flags().String("region", "us-east-1", "S3 region")

	rootCmd.AddCommand(exportCmd)
}
