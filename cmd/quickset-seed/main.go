// Package main implements a quickset server preloaded with synthetic data,
// useful for trying out the search API and for load testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quickset/quickset/internal/app"
	"github.com/quickset/quickset/internal/config"
	"github.com/quickset/quickset/internal/logging"
	"github.com/quickset/quickset/pkg/types"
)

// generateString produces a deterministic lowercase string from a seed using
// a linear congruential generator, so reloads yield identical data.
func generateString(length int, seed uint64) string {
	const chars = "abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	b.Grow(length)
	s := seed
	for i := 0; i < length; i++ {
		s = s*1103515245 + 12345
		b.WriteByte(chars[s%uint64(len(chars))])
	}
	return b.String()
}

func main() {
	var (
		rowCount int
		addr     string
	)
	flag.IntVar(&rowCount, "rows", 100_000, "Number of synthetic rows to preload")
	flag.StringVar(&addr, "addr", "0.0.0.0:8080", "Listen address")
	flag.Parse()

	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)
	if host, port, ok := splitAddr(addr); ok {
		cfg.Host = host
		cfg.Port = port
	}
	cfg.TableDefaultCapacity = rowCount

	logger, cleanup := logging.Setup(cfg.LogLevel, cfg.SeqURL)
	defer cleanup()

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	schema, err := types.NewSchema([]types.Column{
		{Name: "id", Type: types.ColumnInt},
		{Name: "name", Type: types.ColumnString},
		{Name: "description", Type: types.ColumnString},
		{Name: "value", Type: types.ColumnInt},
	})
	if err != nil {
		log.Fatalf("Failed to build schema: %v", err)
	}

	tbl, err := application.Registry().Create("data", schema, rowCount)
	if err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}

	fmt.Printf("quickset - preloading %d rows...\n", rowCount)
	start := time.Now()

	const batchSize = 10_000
	batch := make([][]types.Value, 0, batchSize)
	for i := 0; i < rowCount; i++ {
		batch = append(batch, []types.Value{
			types.IntValue(int64(i)),
			types.StringValue(generateString(12, uint64(i))),
			types.StringValue(fmt.Sprintf("item %d with searchable content", i)),
			types.IntValue(int64(i * 7)),
		})
		if len(batch) == batchSize {
			if err := tbl.Insert(batch); err != nil {
				log.Fatalf("Failed to insert batch: %v", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := tbl.Insert(batch); err != nil {
			log.Fatalf("Failed to insert batch: %v", err)
		}
	}

	fmt.Printf("loaded %d rows in %v\n\n", rowCount, time.Since(start))
	fmt.Printf("starting http server on %s\n\n", cfg.Addr())
	fmt.Println("example queries:")
	fmt.Printf("  curl -X POST http://%s/search -d '{\"table\":\"data\",\"column\":\"id\",\"type\":\"exact\",\"value\":42}'\n", cfg.Addr())
	fmt.Printf("  curl -X POST http://%s/search -d '{\"table\":\"data\",\"column\":\"name\",\"type\":\"prefix\",\"prefix\":\"abc\"}'\n", cfg.Addr())
	fmt.Printf("  curl -X POST http://%s/search -d '{\"table\":\"data\",\"column\":\"description\",\"type\":\"fulltext\",\"query\":\"searchable\"}'\n", cfg.Addr())
	fmt.Printf("  curl -X POST http://%s/search -d '{\"table\":\"data\",\"column\":\"value\",\"type\":\"range\",\"min\":100,\"max\":200}'\n", cfg.Addr())
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	if err := application.WaitForShutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := application.Stop(context.Background()); err != nil {
		logger.Error("stop error", "error", err)
	}
}

// splitAddr parses host:port, tolerating a bare port like ":8080".
func splitAddr(addr string) (string, int, bool) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", 0, false
	}
	host := addr[:idx]
	if host == "" {
		host = "0.0.0.0"
	}
	var port int
	if _, err := fmt.Sscanf(addr[idx+1:], "%d", &port); err != nil {
		return "", 0, false
	}
	return host, port, true
}
