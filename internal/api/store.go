package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/talgya/metro/internal/city"
)

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	if err := s.requireDB(); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.DB.ListCities(limit)
	if err != nil {
		writeError(w, r, fmt.Errorf("list cities: %w", err))
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	if err := s.requireDB(); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.DB.LoadCity(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleStoredTimeline(w http.ResponseWriter, r *http.Request) {
	if err := s.requireDB(); err != nil {
		writeError(w, r, err)
		return
	}
	tl, err := s.DB.LoadTimeline(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, tl)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if err := s.requireDB(); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	runs, err := s.DB.RecentRuns(limit)
	if err != nil {
		writeError(w, r, fmt.Errorf("list runs: %w", err))
		return
	}
	writeJSON(w, runs)
}

// handleImport stores a JSON object of id to snapshot document. Documents
// go through the same normalization as stored cities, so legacy layouts are
// accepted.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := s.requireDB(); err != nil {
		writeError(w, r, err)
		return
	}
	var docs map[string]json.RawMessage
	if err := decodeBody(w, r, maxImportBody, &docs); err != nil {
		writeError(w, r, err)
		return
	}
	if len(docs) == 0 {
		writeError(w, r, badRequest("no cities to import"))
		return
	}

	start := time.Now()
	snaps := make(map[string]*city.Snapshot, len(docs))
	for id, raw := range docs {
		if id == "" {
			writeError(w, r, badRequest("city id must not be empty"))
			return
		}
		snap, err := city.DecodeSnapshot(raw)
		if err != nil {
			writeError(w, r, &apiError{
				status: http.StatusUnprocessableEntity,
				kind:   "invalid_snapshot",
				msg:    fmt.Sprintf("city %s: %v", id, err),
			})
			return
		}
		snaps[id] = snap
	}
	if err := s.DB.ImportCities(snaps); err != nil {
		writeError(w, r, fmt.Errorf("import cities: %w", err))
		return
	}

	ids := make([]string, 0, len(snaps))
	for id := range snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.recordRun("import", ids[0], 0, time.Since(start))

	slog.Info("cities imported", "count", len(ids))
	writeJSON(w, map[string]any{"imported": len(ids), "ids": ids})
}
