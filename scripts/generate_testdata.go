//go:build ignore

// generate_testdata.go creates standard card tree datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates, under testdata/benchmark:
//   small.json    (demo shape, 101 leaves)
//   medium.yaml   (1000 leaves)
//   large.jsonl   (10000 leaves)
//   huge.db       (50000 leaves, SQLite)
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/cardtree/internal/datasource"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/testutil"
)

type datasetSpec struct {
	file         string
	grandparents int
	parentsPer   int
	leaves       int
}

var datasets = []datasetSpec{
	{"small.json", 2, 3, 101},
	{"medium.yaml", 4, 5, 1000},
	{"large.jsonl", 10, 10, 10000},
	{"huge.db", 20, 25, 50000},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for _, ds := range datasets {
		fmt.Printf("Generating %s (%d leaves)...\n", ds.file, ds.leaves)

		nodes := testutil.New(testutil.GeneratorConfig{
			Seed:                int64(ds.leaves), // Reproducible per-size
			Grandparents:        ds.grandparents,
			ParentsPer:          ds.parentsPer,
			Leaves:              ds.leaves,
			MaxLeafParents:      3,
			IncludeDescriptions: true,
		}).Tree()

		st, err := store.NewMemoryStore(nodes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Generated tree is invalid: %v\n", err)
			os.Exit(1)
		}
		if problems := store.Validate(st); len(problems) > 0 {
			fmt.Fprintf(os.Stderr, "Generated tree has %d problems, first: %s\n", len(problems), problems[0])
			os.Exit(1)
		}

		outputPath := filepath.Join(outputDir, ds.file)
		if err := datasource.Save(ctx, outputPath, nodes); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		info, _ := os.Stat(outputPath)
		size := int64(0)
		if info != nil {
			size = info.Size()
		}
		fmt.Printf("  Written %s (%d bytes, %d nodes)\n", outputPath, size, len(nodes))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
