package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/vesselinfo/internal/cache"
	"github.com/ppiankov/vesselinfo/internal/lookup"
	"github.com/ppiankov/vesselinfo/internal/model"
	"github.com/ppiankov/vesselinfo/internal/resolve"
	"github.com/ppiankov/vesselinfo/internal/store"
	"github.com/ppiankov/vesselinfo/internal/tool"
)

// Flags shared by the commands that load a store.
var (
	sourceFlags []string
	maxResults  int
	noCache     bool
)

// applyStoreFlags copies explicitly set flags over the loaded configuration.
func applyStoreFlags(c *model.Config) {
	if len(sourceFlags) > 0 {
		c.Store.Sources = sourceFlags
	}
	if maxResults > 0 {
		c.Query.MaxResults = maxResults
	}
	if noCache {
		c.Query.CacheEnabled = false
	}
}

func storeOptions(c *model.Config) (store.Options, error) {
	opts := store.Options{
		Workers: c.Store.Workers,
		Logger:  logger.Named("store"),
		S3:      c.Store.S3,
	}
	switch d := []rune(c.Store.Delimiter); len(d) {
	case 0:
	case 1:
		opts.Delimiter = d[0]
	default:
		if c.Store.Delimiter == `\t` {
			opts.Delimiter = '\t'
			break
		}
		return opts, fmt.Errorf("store.delimiter must be a single character, got %q", c.Store.Delimiter)
	}
	return opts, nil
}

func loadStore(ctx context.Context, c *model.Config) (*store.Store, error) {
	opts, err := storeOptions(c)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	s, err := store.Load(ctx, c.Store.Sources, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("store ready", zap.Int("records", s.Len()), zap.Duration("elapsed", time.Since(started)))
	return s, nil
}

func loadTables(c *model.Config) (vesselTypes, cargo *lookup.Table, err error) {
	vesselTypes, err = lookup.LoadFile(c.Store.VesselTypeLookup, lookup.DefaultVesselTypes())
	if err != nil {
		return nil, nil, fmt.Errorf("vessel type lookup: %w", err)
	}
	cargo, err = lookup.LoadFile(c.Store.CargoLookup, lookup.DefaultCargo())
	if err != nil {
		return nil, nil, fmt.Errorf("cargo lookup: %w", err)
	}
	return vesselTypes, cargo, nil
}

// buildHandler loads the store and wires resolver, cache and tool handler.
func buildHandler(ctx context.Context, c *model.Config) (*tool.Handler, error) {
	vesselTypes, cargo, err := loadTables(c)
	if err != nil {
		return nil, err
	}

	s, err := loadStore(ctx, c)
	if err != nil {
		return nil, err
	}

	opts := []resolve.Option{
		resolve.WithMaxResults(c.Query.MaxResults),
		resolve.WithLogger(logger.Named("resolve")),
	}
	if c.Query.CacheEnabled {
		backend := cache.NewMemoryCache(c.Query.CacheTTL, 2*c.Query.CacheTTL)
		opts = append(opts, resolve.WithCache(cache.NewResultCache(backend, c.Query.CacheTTL)))
	}

	return tool.NewHandler(tool.Config{
		Name:        c.Server.ToolName,
		Resolver:    resolve.New(s, opts...),
		VesselTypes: vesselTypes,
		Cargo:       cargo,
		Logger:      logger.Named("tool"),
	}), nil
}
