package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/metro/internal/cache"
	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/persistence"
	"github.com/talgya/metro/internal/temporal"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "metro.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := &Server{
		DB:       db,
		Cache:    cache.NewMemory(64),
		CacheTTL: time.Minute,
		AdminKey: "secret",
		Eras:     temporal.DefaultEras(),
		Defaults: Defaults{Seed: 2944957927, YearStep: 50, TotalYears: 1500, Workers: 2},
	}
	h := s.Handler()
	t.Cleanup(s.limiter.Close)
	return s, h
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return e
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["cache"] != "memory" || body["storage"] != true {
		t.Errorf("unexpected health body %v", body)
	}
	if _, ok := body["last_start"]; ok {
		t.Error("last_start reported before any start was recorded")
	}
}

func TestHealthReportsLastStart(t *testing.T) {
	s, h := newTestServer(t)
	if err := s.DB.SaveMeta("last_start", "metro :8080"); err != nil {
		t.Fatal(err)
	}
	rec := do(t, h, http.MethodGet, "/api/v1/health", "", nil)
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["last_start"] != "metro :8080" {
		t.Errorf("expected last_start, got %v", body)
	}
}

func TestSimulateCity(t *testing.T) {
	_, h := newTestServer(t)
	body := `{"population":50000,"city_size":8,"seed":1234567890}`

	rec := do(t, h, http.MethodPost, "/api/v1/simulate-city", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("expected cache miss on first request")
	}

	var resp struct {
		ID   string `json:"id"`
		City struct {
			Population  int               `json:"population"`
			Area        float64           `json:"area"`
			Districts   []json.RawMessage `json:"districts"`
			GeneratedAt *time.Time        `json:"generated_at"`
		} `json:"city"`
		SeedTree struct {
			MasterSeed uint32 `json:"master_seed"`
		} `json:"seed_tree"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.City.Population != 50000 || resp.City.Area != 64 || len(resp.City.Districts) != 4 {
		t.Errorf("unexpected city: pop %d area %v districts %d", resp.City.Population, resp.City.Area, len(resp.City.Districts))
	}
	if resp.City.GeneratedAt == nil {
		t.Error("expected generated_at on API responses")
	}
	if resp.SeedTree.MasterSeed != 1234567890 {
		t.Errorf("unexpected seed tree master %d", resp.SeedTree.MasterSeed)
	}
	if !strings.HasPrefix(resp.ID, "metro_") {
		t.Errorf("unexpected id %s", resp.ID)
	}

	again := do(t, h, http.MethodPost, "/api/v1/simulate-city", body, nil)
	if again.Header().Get("X-Cache") != "hit" {
		t.Error("expected cache hit on repeat request")
	}
	if !bytes.Equal(again.Body.Bytes(), rec.Body.Bytes()) {
		t.Error("cached response differs from the original")
	}

	stored := do(t, h, http.MethodGet, "/api/v1/cities/"+resp.ID, "", nil)
	if stored.Code != http.StatusOK {
		t.Errorf("expected stored city, got %d", stored.Code)
	}

	list := do(t, h, http.MethodGet, "/api/v1/cities", "", nil)
	var records []map[string]any
	json.Unmarshal(list.Body.Bytes(), &records)
	if len(records) != 1 || records[0]["id"] != resp.ID {
		t.Errorf("unexpected city list %v", records)
	}

	runs := do(t, h, http.MethodGet, "/api/v1/runs?limit=10", "", nil)
	var runList []map[string]any
	json.Unmarshal(runs.Body.Bytes(), &runList)
	if len(runList) != 1 || runList[0]["kind"] != "city" {
		t.Errorf("expected one city run, got %v", runList)
	}
}

func TestSimulateCityDefaultSeed(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/v1/simulate-city", `{"population":1000,"city_size":2}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		City struct {
			Seed uint32 `json:"seed"`
		} `json:"city"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.City.Seed != 2944957927 {
		t.Errorf("expected default seed, got %d", resp.City.Seed)
	}
}

func TestErrorMapping(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"bad population", http.MethodPost, "/api/v1/simulate-city", `{"population":-5,"city_size":8}`, 400, "invalid_parameter"},
		{"bad size", http.MethodPost, "/api/v1/simulate-city", `{"population":5,"city_size":0}`, 400, "invalid_parameter"},
		{"bad json", http.MethodPost, "/api/v1/simulate-city", `{"population":`, 400, "bad_request"},
		{"bad step", http.MethodPost, "/api/v1/timeline", `{"population":5000,"city_size":4,"year_step":-1}`, 400, "invalid_parameter"},
		{"era gap", http.MethodPost, "/api/v1/timeline",
			`{"population":5000,"city_size":4,"eras":[{"name":"Late","stage":"founding","year_start":10,"year_end":2000,"population_min":0,"population_max":100}]}`,
			422, "era_coverage"},
		{"bad seed", http.MethodGet, "/api/v1/seed-tree/abc", "", 400, "invalid_parameter"},
		{"unknown city", http.MethodGet, "/api/v1/cities/metro_000000000000", "", 404, "not_found"},
		{"unknown timeline", http.MethodGet, "/api/v1/timelines/metro_000000000000", "", 404, "not_found"},
		{"overflowing years", http.MethodPost, "/api/v1/timeline",
			`{"population":1000,"city_size":4,"seed":1,"year_step":9223372036854775807,"total_years":9223372036854775807}`,
			400, "invalid_parameter"},
		{"huge size", http.MethodPost, "/api/v1/simulate-city", `{"population":50000,"city_size":1e200}`, 400, "invalid_parameter"},
		{"bad frame query", http.MethodGet, "/api/v1/timeline/frame?population=x", "", 400, "invalid_parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			e := decodeError(t, rec)
			if e.Error != tt.kind || e.Code != tt.status {
				t.Errorf("expected %s/%d, got %s/%d", tt.kind, tt.status, e.Error, e.Code)
			}
		})
	}
}

func TestTimelineAndFrame(t *testing.T) {
	_, h := newTestServer(t)
	body := `{"population":20000,"city_size":6,"seed":42,"year_step":500,"total_years":1500}`

	rec := do(t, h, http.MethodPost, "/api/v1/timeline", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tl temporal.Timeline
	if err := json.Unmarshal(rec.Body.Bytes(), &tl); err != nil {
		t.Fatal(err)
	}
	if len(tl.Frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(tl.Frames))
	}
	if tl.Frames[0].Stage != "founding" || tl.Frames[3].Stage != "modern" {
		t.Errorf("unexpected stages %s..%s", tl.Frames[0].Stage, tl.Frames[3].Stage)
	}

	frame := do(t, h, http.MethodGet,
		"/api/v1/timeline/frame?population=20000&city_size=6&seed=42&year_step=500&total_years=1500&year=520", "", nil)
	if frame.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", frame.Code, frame.Body.String())
	}
	if frame.Header().Get("X-Cache") != "hit" {
		t.Error("frame lookup should reuse the cached timeline")
	}
	var fr struct {
		TimelineID string `json:"timeline_id"`
		Frame      struct {
			Year int `json:"year"`
		} `json:"frame"`
		KeyPoints []temporal.KeyPoint `json:"key_points"`
		Grid      []city.Road         `json:"grid"`
	}
	json.Unmarshal(frame.Body.Bytes(), &fr)
	if len(fr.Grid) != 2 || fr.Grid[0].Kind != city.RoadCardo || fr.Grid[1].Kind != city.RoadDecumanus {
		t.Errorf("unexpected grid %+v", fr.Grid)
	}
	if fr.Frame.Year != 500 {
		t.Errorf("expected closest year 500, got %d", fr.Frame.Year)
	}
	if fr.TimelineID != tl.Metadata.ID {
		t.Errorf("timeline id mismatch %s vs %s", fr.TimelineID, tl.Metadata.ID)
	}
	for _, k := range fr.KeyPoints {
		if k.Year > 500 {
			t.Errorf("key point %s not yet built in year 500", k.ID)
		}
	}

	stored := do(t, h, http.MethodGet, "/api/v1/timelines/"+tl.Metadata.ID, "", nil)
	if stored.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", stored.Code, stored.Body.String())
	}
	var back temporal.Timeline
	if err := json.Unmarshal(stored.Body.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Metadata.ID != tl.Metadata.ID || len(back.Frames) != len(tl.Frames) {
		t.Errorf("stored timeline differs: %s with %d frames", back.Metadata.ID, len(back.Frames))
	}
}

func TestErasAndSeedTree(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/eras", "", nil)
	var eras temporal.EraTable
	json.Unmarshal(rec.Body.Bytes(), &eras)
	if len(eras) != 4 || eras[0].Name != "Founding" {
		t.Errorf("unexpected eras %+v", eras)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/seed-tree/42", "", nil)
	var tree struct {
		MasterSeed uint32            `json:"master_seed"`
		Seeds      map[string]uint32 `json:"seeds"`
	}
	json.Unmarshal(rec.Body.Bytes(), &tree)
	if tree.MasterSeed != 42 || len(tree.Seeds) == 0 {
		t.Errorf("unexpected seed tree %+v", tree)
	}
}

func TestImportRequiresAdmin(t *testing.T) {
	s, h := newTestServer(t)
	doc := `{"legacy_1":{"population":1000,"area":4,"districts":[],"infrastructure":{"roads":[],"utilities":[],"services":{"hospital":[{"x":1,"y":1,"capacity":100}]}},"seed":7}}`

	rec := do(t, h, http.MethodPost, "/api/v1/cities/import", doc, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/cities/import", doc, map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/cities/import", doc, map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	snap, err := s.DB.LoadCity("legacy_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Infrastructure.Services) != 1 || snap.Infrastructure.Services[0].Type != "hospital" {
		t.Errorf("legacy services not flattened: %+v", snap.Infrastructure.Services)
	}

	bad := do(t, h, http.MethodPost, "/api/v1/cities/import", `{"x":{"population":-1,"area":4}}`,
		map[string]string{"Authorization": "Bearer secret"})
	if bad.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for invalid snapshot, got %d", bad.Code)
	}
}

func TestImportDisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t)
	s.AdminKey = ""
	h := s.Handler()
	rec := do(t, h, http.MethodPost, "/api/v1/cities/import", `{}`, map[string]string{"Authorization": "Bearer "})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestStorageUnavailable(t *testing.T) {
	s := &Server{}
	h := s.Handler()
	t.Cleanup(s.limiter.Close)
	rec := do(t, h, http.MethodGet, "/api/v1/cities", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := &Server{RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}}
	h := s.Handler()
	t.Cleanup(s.limiter.Close)

	if rec := do(t, h, http.MethodGet, "/api/v1/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Errorf("expected remote addr host, got %s", got)
	}
	if got := clientIP(req, true); got != "203.0.113.9" {
		t.Errorf("expected forwarded client, got %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := &Server{CORSOrigins: []string{"http://allowed.test"}}
	h := s.Handler()
	t.Cleanup(s.limiter.Close)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/simulate-city", nil)
	req.Header.Set("Origin", "http://allowed.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://allowed.test" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
}
