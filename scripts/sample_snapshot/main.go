package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"catalog-sync/internal/model"
	"catalog-sync/internal/snapshot"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Writes a small catalogue snapshot for seeding a development server:
//
//	go run ./scripts/sample_snapshot && SEED_PATH=data/snapshots/sample.jsonl.gz go run ./cmd/api
func main() {
	out := "data/snapshots/sample.jsonl.gz"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UnixMilli()
	meta := func() model.Metadata {
		now++
		return model.Metadata{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	}

	drinks := model.Category{Metadata: meta(), Name: "Drinks", Description: "Hot and cold beverages"}
	snacks := model.Category{Metadata: meta(), Name: "Snacks", Description: "Crisps, nuts and bars"}

	product := func(name, price string, category model.Category, stock int) model.Product {
		return model.Product{
			Metadata:   meta(),
			Name:       name,
			Price:      decimal.RequireFromString(price),
			CategoryID: category.ID,
			Stock:      stock,
		}
	}

	snap := &snapshot.Snapshot{
		Categories: []model.Category{drinks, snacks},
		Products: []model.Product{
			product("Cola", "1.50", drinks, 48),
			product("Sparkling Water", "0.99", drinks, 120),
			product("Cold Brew", "3.20", drinks, 12),
			product("Salted Crisps", "1.10", snacks, 60),
			product("Mixed Nuts", "2.75", snacks, 25),
		},
	}

	if err := snapshot.WriteFile(out, snap); err != nil {
		log.Fatalf("Failed to write snapshot: %v", err)
	}

	fmt.Printf("Wrote %d records to %s\n", snap.Len(), out)
}
