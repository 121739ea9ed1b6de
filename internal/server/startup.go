package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/cog"
	"github.com/tileserv/tileserv/internal/config"
	"github.com/tileserv/tileserv/internal/coordinator"
	"github.com/tileserv/tileserv/internal/mbtiles"
	"github.com/tileserv/tileserv/internal/metrics"
	"github.com/tileserv/tileserv/internal/pmtiles"
	"github.com/tileserv/tileserv/internal/postgres"
	"github.com/tileserv/tileserv/internal/tileutil"
)

type built struct {
	catalog     *catalog.Catalog
	coordinator *coordinator.Coordinator
	registry    *prometheus.Registry
	closers     []func() error
}

// build opens every configured backend, auto-discovers Postgres
// sources, registers explicit configuration-declared sources (which
// take precedence over auto-discovery per catalog.Builder.Add), and
// assembles the Catalog, caches, and Coordinator.
func build(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*built, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	b := catalog.NewBuilder()
	var closers []func() error

	if cfg.Postgres.ConnectionString != "" {
		pool, err := postgres.Open(ctx, postgres.PoolConfig{
			ConnectionString: cfg.Postgres.ConnectionString,
			PoolSize:         cfg.Postgres.PoolSize,
			DefaultSRID:      cfg.Postgres.DefaultSRID,
			SSLMode:          postgres.SSLMode(cfg.Postgres.SSLMode),
			SSLCert:          cfg.Postgres.SSLCert,
			SSLKey:           cfg.Postgres.SSLKey,
			SSLRootCert:      cfg.Postgres.SSLRootCert,
		}, m)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)

		for _, m := range cfg.Postgres.Tables {
			src, err := postgres.TableSourceFromConfig(pool, m)
			if err != nil {
				logger.Warnw("configured postgres table", "error", err)
				continue
			}
			b.Add(src, true)
		}
		for _, m := range cfg.Postgres.Functions {
			src, err := postgres.FunctionSourceFromConfig(pool, m)
			if err != nil {
				logger.Warnw("configured postgres function", "error", err)
				continue
			}
			b.Add(src, true)
		}

		if cfg.Postgres.AutoPublish {
			results, warnings := postgres.DiscoverTables(ctx, pool, cfg.Postgres.DefaultSRID, "")
			for _, w := range warnings {
				logger.Warnw("postgres table discovery", "error", w)
			}
			for _, res := range results {
				bounds := postgres.ComputeBounds(ctx, pool, res.Table, postgres.BoundsPolicy(cfg.Postgres.AutoBounds))
				res.Table.SetBounds(bounds)
				if cfg.Postgres.MaxFeatureCount > 0 {
					res.Table.MaxFeatureCnt = cfg.Postgres.MaxFeatureCount
				}
				b.Add(res.Table, false)
			}

			fnResults, fnWarnings := postgres.DiscoverFunctions(ctx, pool)
			for _, w := range fnWarnings {
				logger.Warnw("postgres function discovery", "error", w)
			}
			for _, res := range fnResults {
				b.Add(res.Function, false)
			}
		}
	}

	dirCache := pmtiles.NewDirectoryCache(cfg.CacheSizeMB * 1 << 20 / 4)

	for _, path := range cfg.PMTiles.Paths {
		id := sourceIDFromPath(path)
		src, err := pmtiles.Open(ctx, id, path, dirCache, m)
		if err != nil {
			logger.Warnw("opening pmtiles archive", "path", path, "error", err)
			continue
		}
		closers = append(closers, src.Close)
		b.Add(src, true)
	}
	for id, path := range cfg.PMTiles.Sources {
		src, err := pmtiles.Open(ctx, id, path, dirCache, m)
		if err != nil {
			logger.Warnw("opening pmtiles archive", "path", path, "error", err)
			continue
		}
		closers = append(closers, src.Close)
		b.Add(src, true)
	}

	for _, path := range cfg.MBTiles.Paths {
		id := sourceIDFromPath(path)
		src, err := mbtiles.Open(ctx, id, path)
		if err != nil {
			logger.Warnw("opening mbtiles archive", "path", path, "error", err)
			continue
		}
		closers = append(closers, src.Close)
		b.Add(src, true)
	}
	for id, path := range cfg.MBTiles.Sources {
		src, err := mbtiles.Open(ctx, id, path)
		if err != nil {
			logger.Warnw("opening mbtiles archive", "path", path, "error", err)
			continue
		}
		closers = append(closers, src.Close)
		b.Add(src, true)
	}

	for _, path := range cfg.COG.Paths {
		id := sourceIDFromPath(path)
		src, err := cog.OpenPath(id, path)
		if err != nil {
			logger.Warnw("opening cog archive", "path", path, "error", err)
			continue
		}
		closers = append(closers, src.Close)
		b.Add(src, true)
	}
	for id, path := range cfg.COG.Sources {
		src, err := cog.OpenPath(id, path)
		if err != nil {
			logger.Warnw("opening cog archive", "path", path, "error", err)
			continue
		}
		closers = append(closers, src.Close)
		b.Add(src, true)
	}

	cat := b.Build()
	if cat.Len() == 0 {
		logger.Warnw("catalog is empty: no Postgres, PMTiles, MBTiles, or COG source was successfully registered")
	}

	tileCache := coordinator.NewTileCache(cfg.CacheSizeMB * 1 << 20)
	coord := coordinator.New(cat, tileCache, tileutil.ParseEncoding(cfg.PreferredEncoding), m)

	return &built{catalog: cat, coordinator: coord, registry: reg, closers: closers}, nil
}

// sourceIDFromPath derives a default source ID from an archive path's
// base name, stripping its extension (§3's "default ID" convention for
// file-backed sources, mirrored from the Postgres table/function
// default-ID rule).
func sourceIDFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}
