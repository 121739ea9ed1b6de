package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tileserv/tileserv/internal/catalog"
)

func TestHandleTileJSONUnknownSource(t *testing.T) {
	s := &Server{catalog: catalog.NewBuilder().Build()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nosuch", nil)

	s.handleTileJSON(rec, req, "nosuch")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown source, got %d", rec.Code)
	}
}

func TestDispatchRoutesBySegmentCount(t *testing.T) {
	s := &Server{catalog: catalog.NewBuilder().Build()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/water", nil)
	s.dispatch(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("single-segment unknown source: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/water/extra", nil)
	s.dispatch(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("two-segment path should 404 (neither TileJSON nor tile form), got %d", rec.Code)
	}
}
