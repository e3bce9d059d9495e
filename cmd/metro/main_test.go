package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/persistence"
)

func run(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("metro %s: %v\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), stderr.String()
}

func TestSeedsCategories(t *testing.T) {
	out, _ := run(t, "seeds", "1234567890", "-c", "zones,districts")
	want := "zones\t455099061\ndistricts\t741885971\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestSeedsTree(t *testing.T) {
	out, _ := run(t, "seeds", "42")
	var tree entropy.SeedTree
	if err := json.Unmarshal([]byte(out), &tree); err != nil {
		t.Fatal(err)
	}
	if tree.MasterSeed != 42 || tree.Seeds["zones"] != entropy.DeriveSeed(42, "zones") {
		t.Errorf("unexpected tree %+v", tree)
	}
}

func TestGenerateAndSave(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "metro.db")
	outPath := filepath.Join(dir, "city.json")

	_, summary := run(t, "generate", "-p", "50000", "-s", "8", "--seed", "1234567890", "-o", outPath, "--save", "--db", dbPath)
	if !strings.Contains(summary, "50,000 people") || !strings.Contains(summary, " km), ") {
		t.Errorf("expected humanized summary, got %q", summary)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var snap struct {
		Population int               `json:"population"`
		Districts  []json.RawMessage `json:"districts"`
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Population != 50000 || len(snap.Districts) != 4 {
		t.Errorf("unexpected snapshot: %d people, %d districts", snap.Population, len(snap.Districts))
	}

	db, err := persistence.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	records, err := db.ListCities(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Seed != 1234567890 {
		t.Errorf("unexpected stored cities %+v", records)
	}
}

func TestGenerateRandomSeedIsReported(t *testing.T) {
	_, stderr := run(t, "generate", "-p", "1000", "-s", "2")
	if !strings.HasPrefix(stderr, "seed: ") {
		t.Errorf("expected drawn seed to be printed, got %q", stderr)
	}
}

func TestTimelineCommand(t *testing.T) {
	out, summary := run(t, "timeline", "-p", "20000", "-s", "6", "--seed", "42", "--year-step", "500", "--total-years", "1500")
	var tl struct {
		Frames []json.RawMessage `json:"frames"`
	}
	if err := json.Unmarshal([]byte(out), &tl); err != nil {
		t.Fatal(err)
	}
	if len(tl.Frames) != 4 {
		t.Errorf("expected 4 frames, got %d", len(tl.Frames))
	}
	if !strings.Contains(summary, "4 frames over 1500 years") {
		t.Errorf("unexpected summary %q", summary)
	}
}

func TestEvolveCommand(t *testing.T) {
	out, _ := run(t, "evolve", "-p", "5000", "--seed", "7", "-y", "3", "--model", "static")
	var res struct {
		Years []struct {
			Year int `json:"year"`
		} `json:"years"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Years) != 3 || res.Years[2].Year != 3 {
		t.Errorf("unexpected years %+v", res.Years)
	}
}

func TestEvolveRejectsNegativeYears(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs([]string{"evolve", "-p", "5000", "--seed", "7", "--years=-1", "--log-level", "error"})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid years -1") {
		t.Errorf("expected invalid years error, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %q", stdout.String())
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "metro.db")
	file := filepath.Join(dir, "cities.json")
	doc := `{"old":{"population":1200,"area":9,"districts":[],"infrastructure":{"roads":[],"utilities":{"well":[{"x":1,"y":1,"capacity":10}]},"services":[]},"seed":3}}`
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	run(t, "import", file, "--db", dbPath)

	db, err := persistence.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	snap, err := db.LoadCity("old")
	if err != nil {
		t.Fatal(err)
	}
	if snap.CitySize != 3 || len(snap.Infrastructure.Utilities) != 1 || snap.Infrastructure.Utilities[0].Type != "well" {
		t.Errorf("unexpected imported city %+v", snap)
	}
}
