package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/temporal"
)

type cityRequest struct {
	Population int     `json:"population"`
	CitySize   float64 `json:"city_size"`
	Seed       *uint32 `json:"seed"`
}

func (s *Server) params(req cityRequest) city.Params {
	p := city.Params{Population: req.Population, CitySize: req.CitySize, Seed: s.Defaults.Seed}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	return p
}

type cityResponse struct {
	ID       string           `json:"id"`
	City     city.Snapshot    `json:"city"`
	SeedTree entropy.SeedTree `json:"seed_tree"`
}

func (s *Server) handleSimulateCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if err := decodeBody(w, r, maxRequestBody, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := s.params(req)
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	id := city.ID(p)
	key := "city:" + id
	if data, ok := s.cacheGet(r.Context(), key); ok {
		writeRaw(w, data, "hit")
		return
	}

	start := time.Now()
	snap, tree, err := city.GenerateWithSeeds(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	took := time.Since(start)
	stamped := snap.Stamped(time.Now())

	data, err := json.Marshal(cityResponse{ID: id, City: stamped, SeedTree: tree})
	if err != nil {
		writeError(w, r, fmt.Errorf("encode city: %w", err))
		return
	}
	s.cacheSet(r.Context(), key, data)

	if s.DB != nil {
		if err := s.DB.SaveCity(id, &stamped); err != nil {
			slog.Warn("failed to save city", "id", id, "error", err)
		}
	}
	s.recordRun("city", id, p.Seed, took)

	slog.Info("city generated",
		"id", id,
		"population", p.Population,
		"districts", len(snap.Districts),
		"duration_ms", took.Milliseconds(),
	)
	writeRaw(w, data, "miss")
}

type timelineRequest struct {
	cityRequest
	YearStep   int               `json:"year_step"`
	TotalYears int               `json:"total_years"`
	Eras       temporal.EraTable `json:"eras,omitempty"`
}

func (s *Server) options(req timelineRequest) temporal.Options {
	p := s.params(req.cityRequest)
	opts := temporal.Options{
		Population: p.Population,
		CitySize:   p.CitySize,
		Seed:       p.Seed,
		Eras:       req.Eras,
		YearStep:   req.YearStep,
		TotalYears: req.TotalYears,
		Workers:    s.Defaults.Workers,
	}
	if opts.Eras == nil {
		opts.Eras = s.eras()
	}
	if opts.YearStep == 0 {
		opts.YearStep = s.Defaults.YearStep
	}
	if opts.TotalYears == 0 {
		opts.TotalYears = s.Defaults.TotalYears
	}
	return opts
}

// timeline returns the encoded timeline for opts from cache or by generating
// it. The decoded timeline is only produced when decode is set.
func (s *Server) timeline(ctx context.Context, opts temporal.Options, decode bool) (*temporal.Timeline, []byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, false, err
	}
	id := temporal.ID(opts)
	key := "timeline:" + id

	if data, ok := s.cacheGet(ctx, key); ok {
		if !decode {
			return nil, data, true, nil
		}
		var tl temporal.Timeline
		if err := json.Unmarshal(data, &tl); err == nil {
			return &tl, data, true, nil
		}
		slog.Warn("discarding undecodable cached timeline", "id", id)
	}

	start := time.Now()
	tl, err := temporal.Generate(ctx, opts)
	if err != nil {
		return nil, nil, false, err
	}
	took := time.Since(start)

	data, err := json.Marshal(tl)
	if err != nil {
		return nil, nil, false, fmt.Errorf("encode timeline: %w", err)
	}
	s.cacheSet(ctx, key, data)

	if s.DB != nil {
		if err := s.DB.SaveTimeline(tl); err != nil {
			slog.Warn("failed to save timeline", "id", id, "error", err)
		}
	}
	s.recordRun("timeline", id, opts.Seed, took)

	slog.Info("timeline generated",
		"id", id,
		"frames", len(tl.Frames),
		"duration_ms", took.Milliseconds(),
	)
	return tl, data, false, nil
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := decodeBody(w, r, maxRequestBody, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_, data, hit, err := s.timeline(r.Context(), s.options(req), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRaw(w, data, cacheLabel(hit))
}

type frameResponse struct {
	TimelineID string              `json:"timeline_id"`
	Requested  int                 `json:"requested_year"`
	Frame      *temporal.Frame     `json:"frame"`
	KeyPoints  []temporal.KeyPoint `json:"key_points"`
	Grid       []city.Road         `json:"grid"`
}

// handleFrame serves one year of a timeline described by query parameters:
// population, city_size, seed, year, year_step, total_years.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req timelineRequest
	var err error

	if req.Population, err = queryInt(r, "population", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if v := q.Get("city_size"); v != "" {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, r, &city.InvalidParameterError{Field: "city_size", Value: v, Reason: "must be a number"})
			return
		}
		req.CitySize = size
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeError(w, r, &city.InvalidParameterError{Field: "seed", Value: v, Reason: "must be an unsigned 32-bit integer"})
			return
		}
		seed32 := uint32(seed)
		req.Seed = &seed32
	}
	if req.YearStep, err = queryInt(r, "year_step", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if req.TotalYears, err = queryInt(r, "total_years", 0); err != nil {
		writeError(w, r, err)
		return
	}
	year, err := queryInt(r, "year", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tl, _, hit, err := s.timeline(r.Context(), s.options(req), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	frame, ok := tl.At(year)
	if !ok {
		writeError(w, r, &apiError{status: http.StatusNotFound, kind: "not_found", msg: "timeline has no frames"})
		return
	}
	w.Header().Set("X-Cache", cacheLabel(hit))
	writeJSON(w, frameResponse{
		TimelineID: tl.Metadata.ID,
		Requested:  year,
		Frame:      frame,
		KeyPoints:  tl.ActiveKeyPoints(frame.Year),
		Grid:       tl.Grid.Roads(),
	})
}
