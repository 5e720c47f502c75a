package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"docchat-service/internal/ai"
	"docchat-service/internal/config"
	"docchat-service/internal/logger"
	"docchat-service/services"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: indexer <command> <company_id>...")
		fmt.Println("Commands:")
		fmt.Println("  build   - Build missing indexes from the staged documents")
		fmt.Println("  verify  - Report the number of indexed chunks")
		os.Exit(1)
	}

	command, tenants := os.Args[1], os.Args[2:]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	store, err := services.NewSQLiteIndexStore(cfg.IndexDir)
	if err != nil {
		log.Fatalf("Failed to open index store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch command {
	case "build":
		embedder, err := ai.NewEmbedder(ctx, cfg, nil)
		if err != nil {
			log.Fatalf("Failed to initialize embedder: %v", err)
		}
		defer embedder.Close()

		if err := build(ctx, cfg, embedder, store, tenants); err != nil {
			log.Fatalf("Build failed: %v", err)
		}
		fmt.Println("Build completed successfully!")

	case "verify":
		if err := verify(ctx, store, tenants); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		fmt.Println("Verification completed successfully!")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func build(ctx context.Context, cfg *config.Config, embedder ai.Embedder, store services.IndexStore, tenants []string) error {
	loader := services.NewDocumentLoader(cfg.DocumentsDir)
	builder := services.NewIndexBuilder(embedder, store, nil)

	for _, tenantID := range tenants {
		chunks, err := loader.Load(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("%s: %w", tenantID, err)
		}
		built, err := builder.EnsureIndex(ctx, tenantID, chunks)
		if err != nil {
			return fmt.Errorf("%s: %w", tenantID, err)
		}
		if built {
			fmt.Printf("%s: indexed %d chunks\n", tenantID, len(chunks))
		} else {
			fmt.Printf("%s: index already present\n", tenantID)
		}
	}
	return nil
}

func verify(ctx context.Context, store *services.SQLiteIndexStore, tenants []string) error {
	for _, tenantID := range tenants {
		count, err := store.Count(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("%s: %w", tenantID, err)
		}
		fmt.Printf("%s: %d chunks\n", tenantID, count)
	}
	return nil
}
