// Package server wires the Huma JSON API surface (health, catalog,
// TileJSON) and the raw http.ServeMux byte-serving path (tile bytes)
// into one http.Handler, generalizing the teacher's
// internal/server/server.go from a DuckDB/editor backend to the tile
// request coordinator.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/composite"
	"github.com/tileserv/tileserv/internal/config"
	"github.com/tileserv/tileserv/internal/coordinator"
	"github.com/tileserv/tileserv/internal/errs"
)

// Server is the tileserv HTTP server.
type Server struct {
	mux         *http.ServeMux
	humaAPI     huma.API
	catalog     *catalog.Catalog
	coordinator *coordinator.Coordinator
	registry    *prometheus.Registry
	logger      *zap.SugaredLogger
	closers     []func() error
}

// New builds a Server from cfg: it opens the configured backends,
// auto-discovers Postgres tables/functions, builds the immutable
// Catalog, and wires every HTTP route.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*Server, error) {
	built, err := build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	humaConfig := huma.DefaultConfig("tileserv API", "1.0.0")
	humaConfig.Info.Description = "Vector and raster map-tile server: PostgreSQL/PostGIS, PMTiles, and MBTiles sources behind a single catalog."
	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		mux:         mux,
		humaAPI:     humaAPI,
		catalog:     built.catalog,
		coordinator: built.coordinator,
		registry:    built.registry,
		logger:      logger,
		closers:     built.closers,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document, used by the `spec`
// CLI subcommand.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close releases every backend resource (Postgres pool, PMTiles/MBTiles
// file handles) opened by New.
func (s *Server) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type healthOutput struct {
	Body string `contentType:"text/plain"`
}

type catalogEntry struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Attribution string `json:"attribution,omitempty"`
}

type catalogOutput struct {
	Body struct {
		Tiles map[string]catalogEntry `json:"tiles"`
	}
}

func (s *Server) routes() {
	huma.Register(s.humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		return &healthOutput{Body: "OK"}, nil
	})

	huma.Register(s.humaAPI, huma.Operation{
		OperationID: "catalog",
		Method:      http.MethodGet,
		Path:        "/catalog",
		Summary:     "List every registered source",
	}, func(ctx context.Context, _ *struct{}) (*catalogOutput, error) {
		out := &catalogOutput{}
		out.Body.Tiles = make(map[string]catalogEntry, s.catalog.Len())
		for _, id := range s.catalog.IDs() {
			src, _ := s.catalog.Lookup(id)
			d := src.Descriptor()
			out.Body.Tiles[id] = catalogEntry{
				Name:        d.Name,
				ContentType: src.TileInfo().Format.ContentType(),
				Attribution: d.Attribution,
			}
		}
		return out, nil
	})

	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Root: reserved for a future web UI (§6); a bare 200 for now.
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		w.WriteHeader(http.StatusOK)
		return
	}
	s.dispatch(w, r)
}

// dispatch routes every non-reserved path: a one-segment path
// ("/{sourceId}" or "/{id1,id2,...}", with an optional ".json" suffix)
// is a TileJSON request; a four-plus-segment path is a tile byte
// request handled by the coordinator; any other path is a 404.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}
	segments := strings.Split(path, "/")

	if len(segments) >= 4 {
		s.coordinator.ServeHTTP(w, r)
		return
	}
	if len(segments) == 1 {
		s.handleTileJSON(w, r, segments[0])
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleTileJSON(w http.ResponseWriter, r *http.Request, lookup string) {
	lookup = strings.TrimSuffix(lookup, ".json")
	ids := composite.ParseSourceList(lookup)

	var desc catalog.TileJSON
	if len(ids) == 1 {
		src, ok := s.catalog.Lookup(ids[0])
		if !ok {
			writeJSONError(w, errs.NotFound("unknown source: "+ids[0]))
			return
		}
		desc = src.Descriptor()
	} else {
		sources, err := composite.Resolve(s.catalog, ids)
		if err != nil {
			writeJSONError(w, err)
			return
		}
		desc = catalog.TileJSON{
			Name:    composite.CacheKeyString(ids),
			Format:  "pbf",
			MinZoom: 0,
			MaxZoom: 22,
		}
		for _, src := range sources {
			desc.VectorLayers = append(desc.VectorLayers, src.Descriptor().VectorLayers...)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(desc)
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindMalformedRequest:
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, err.Error())
}
