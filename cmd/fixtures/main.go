package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/forgo/admin-e2e/internal/config"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/runner"
	"github.com/forgo/admin-e2e/internal/testing/fixtures"
)

func main() {
	// Flags for customization
	configPath := flag.String("config", "", "HuJSON config file")
	cmd := flag.String("cmd", "seed", "Command: seed, clear, drain or user")
	collection := flag.String("collection", "", "Collection slug (default: ADMIN_COLLECTION)")
	n := flag.Int("n", 1, "Number of documents to seed")
	title := flag.String("title", "", "Title of seeded documents (default: \"title\")")
	pageSize := flag.Int("page-size", fixtures.DefaultPageSize, "Documents deleted per clear pass")
	timeout := flag.Duration("timeout", time.Minute, "Overall timeout")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateFixtures(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *collection == "" {
		*collection = cfg.Admin.Collection
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := runner.OpenStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s store: %v\n", cfg.Store.Kind, err)
		fmt.Fprintf(os.Stderr, "\nCheck STORE_KIND and its connection settings\n")
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	fx := fixtures.New(st, fixtures.WithLogger(logger))
	output := map[string]any{"command": *cmd, "collection": *collection}

	switch *cmd {
	case "seed":
		overrides := model.Fields{}
		if *title != "" {
			overrides[model.FieldTitle] = *title
		}
		docs, err := fx.CreateDocuments(ctx, *collection, *n, fixtures.PostDefaults.Merge(overrides))
		if err != nil {
			fail("seeding", err)
		}
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		output["ids"] = ids
	case "clear":
		deleted, err := fx.ClearCollection(ctx, *collection, *pageSize)
		if err != nil {
			fail("clearing", err)
		}
		output["deleted"] = deleted
	case "drain":
		deleted, err := fx.DrainCollection(ctx, *collection, *pageSize)
		if err != nil {
			fail("draining", err)
		}
		output["deleted"] = deleted
	case "user":
		doc, err := fx.SeedUser(ctx, cfg.Admin.AuthCollection, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			fail("seeding user", err)
		}
		output["collection"] = cfg.Admin.AuthCollection
		output["ids"] = []string{doc.ID}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", *cmd)
		flag.Usage()
		os.Exit(2)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}
	fmt.Printf("Command:    %s\n", *cmd)
	fmt.Printf("Collection: %s\n", output["collection"])
	if ids, ok := output["ids"].([]string); ok {
		fmt.Printf("Created:    %d\n", len(ids))
		for _, id := range ids {
			fmt.Printf("  %s\n", id)
		}
	}
	if deleted, ok := output["deleted"].(int); ok {
		fmt.Printf("Deleted:    %d\n", deleted)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	os.Exit(1)
}
