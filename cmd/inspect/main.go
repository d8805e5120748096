// Command inspect connects with the server's configuration and prints how
// every whitelisted table is classified: the field types the grid renders and
// how many options each dropdown resolved to.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gnemet/crudgrid"
	"github.com/gnemet/crudgrid/database/connpool"
	"github.com/gnemet/crudgrid/internal/config"
	"github.com/gnemet/crudgrid/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg.ServiceName+"-inspect", logger.LevelWarn)
	defer logger.Cleanup(log)

	dbOpts, err := cfg.Database()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	registry := crudgrid.DefaultRegistry()
	if cfg.RegistryPath != "" {
		if registry, err = crudgrid.LoadRegistryFile(cfg.RegistryPath); err != nil {
			fmt.Printf("❌ Cannot load registry: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := connpool.Open(ctx, dbOpts, log)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store := crudgrid.NewStore(db, dbOpts.Dialect, registry, log)

	tables := os.Args[1:]
	if len(tables) == 0 {
		tables = registry.Tables()
	}

	ok := true
	for _, table := range tables {
		fields, err := store.FetchFields(ctx, table, nil)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", table, err)
			ok = false
			continue
		}
		rows, err := store.FetchData(ctx, crudgrid.Query{Table: table, Fields: []string{"id"}})
		if err != nil {
			fmt.Printf("❌ %s: %v\n", table, err)
			ok = false
			continue
		}

		fmt.Printf("✅ %s (%d rows)\n", table, crudgrid.TotalCount(rows))
		for _, f := range fields {
			fmt.Printf("   %-20s %-9s %s", f.Name, f.InputType(), f.DisplayText)
			if f.Required {
				fmt.Print(" *")
			}
			if f.Type == crudgrid.FieldDropdown {
				fmt.Printf(" [%d options]", len(f.Items))
			}
			fmt.Println()
		}
	}

	if !ok {
		os.Exit(1)
	}
}
