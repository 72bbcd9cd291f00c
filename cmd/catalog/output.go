package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"catalog-sync/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func syncMark(m model.Metadata) string {
	if m.IsSynced {
		return "synced"
	}
	return "pending"
}

func updated(m model.Metadata) string {
	return time.UnixMilli(m.UpdatedAt).Format(time.DateTime)
}

func printCategories(w io.Writer, categories []model.Category) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tUPDATED\tSTATE")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Description, updated(c.Metadata), syncMark(c.Metadata))
	}
	return tw.Flush()
}

func printProducts(w io.Writer, products []model.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY\tUPDATED\tSTATE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Stock, p.CategoryID, updated(p.Metadata), syncMark(p.Metadata))
	}
	return tw.Flush()
}
