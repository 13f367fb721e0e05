package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-hierarchy-api/internal/config"
	"github.com/yukikurage/task-hierarchy-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := database.Connect(cfg); err != nil {
			return err
		}
		if err := database.Migrate(); err != nil {
			return err
		}

		if cfg.StoreBackend == config.StoreBackendNeo4j {
			ctx := commandContext(cmd)
			repo, closeDriver, err := openNeo4j(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDriver()
			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to create neo4j schema: %w", err)
			}
			log.Println("Neo4j schema ready")
		}
		return nil
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
