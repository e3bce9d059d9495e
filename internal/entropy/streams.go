package entropy

import "sort"

// Streams is the call-scoped set of random streams for one generation run.
// Streams are created lazily on first use of a category and discarded with
// the Streams value; nothing is shared between runs.
type Streams struct {
	master  uint32
	streams map[string]*Stream
	seeds   map[string]uint32
}

// NewStreams creates an empty stream set rooted at master.
func NewStreams(master uint32) *Streams {
	return &Streams{
		master:  master,
		streams: make(map[string]*Stream),
		seeds:   make(map[string]uint32),
	}
}

// Master returns the root seed.
func (s *Streams) Master() uint32 {
	return s.master
}

// Seed returns the derived sub-seed for category, memoised for this run.
func (s *Streams) Seed(category string) uint32 {
	if seed, ok := s.seeds[category]; ok {
		return seed
	}
	seed := DeriveSeed(s.master, category)
	s.seeds[category] = seed
	return seed
}

// Get returns the stream for category, creating it on first use.
func (s *Streams) Get(category string) *Stream {
	if st, ok := s.streams[category]; ok {
		return st
	}
	st := NewStream(s.Seed(category))
	s.streams[category] = st
	return st
}

// Categories lists every category touched so far, sorted.
func (s *Streams) Categories() []string {
	out := make([]string, 0, len(s.seeds))
	for c := range s.seeds {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SeedTree is an exportable view of the derived seeds of one run.
type SeedTree struct {
	MasterSeed uint32            `json:"master_seed"`
	Seeds      map[string]uint32 `json:"seeds"`
	Draws      map[string]uint64 `json:"draws,omitempty"`
}

// Tree exports the seeds derived so far and how far each stream advanced.
func (s *Streams) Tree() SeedTree {
	t := SeedTree{
		MasterSeed: s.master,
		Seeds:      make(map[string]uint32, len(s.seeds)),
		Draws:      make(map[string]uint64, len(s.streams)),
	}
	for c, seed := range s.seeds {
		t.Seeds[c] = seed
	}
	for c, st := range s.streams {
		t.Draws[c] = st.Draws()
	}
	return t
}

// StandardTree derives the standard categories and their branches for master
// without drawing from any stream.
func StandardTree(master uint32) SeedTree {
	s := NewStreams(master)
	for _, parent := range []string{CategoryZones, CategoryDistricts, CategoryInfrastructure, CategoryDemographics} {
		s.Seed(parent)
		for name := range BranchSeeds(master, parent) {
			s.Seed(Child(parent, name))
		}
	}
	t := s.Tree()
	t.Draws = nil
	return t
}
