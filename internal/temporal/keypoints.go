package temporal

import "github.com/talgya/metro/internal/geometry"

// KeyPoint is a landmark that exists from Year onward.
type KeyPoint struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Year        int            `json:"year"`
	Importance  int            `json:"importance"` // 1-5
	Position    geometry.Point `json:"position"`
	Description string         `json:"description"`
}

// Active reports whether the landmark stands in the given year.
func (k KeyPoint) Active(year int) bool {
	return k.Year <= year
}

// Landmark positions are fractions of the city size.
var landmarks = []struct {
	id, name, kind string
	year, imp      int
	fx, fy         float64
	desc           string
}{
	{"central_forum", "Central Forum", "market", 0, 5, 0.50, 0.50, "The heart of the city, where the main roads meet"},
	{"first_temple", "Temple of the City Gods", "religious", 5, 4, 0.52, 0.47, "The first major religious structure"},
	{"city_hall", "City Hall", "government", 80, 4, 0.46, 0.54, "The seat of local government"},
	{"victory_column", "Victory Column", "monument", 120, 3, 0.56, 0.56, "A column celebrating military victories"},
	{"market_square", "Market Square", "market", 150, 3, 0.42, 0.44, "A bustling marketplace for goods"},
	{"grand_cathedral", "Grand Cathedral", "religious", 260, 5, 0.58, 0.42, "A magnificent religious structure"},
	{"royal_palace", "Royal Palace", "government", 320, 5, 0.38, 0.60, "The residence of the ruling family"},
	{"great_library", "Great Library", "government", 380, 4, 0.62, 0.62, "A center of learning and knowledge"},
	{"victory_arch", "Victory Arch", "monument", 450, 3, 0.50, 0.68, "A triumphal arch celebrating achievements"},
	{"central_station", "Central Station", "transport", 620, 4, 0.50, 0.35, "The main transportation hub"},
	{"university_campus", "University Campus", "government", 700, 4, 0.30, 0.30, "A major educational institution"},
	{"sports_stadium", "Sports Stadium", "monument", 850, 3, 0.72, 0.30, "A large sports and entertainment venue"},
	{"airport", "Airport", "transport", 950, 4, 0.90, 0.85, "The main airport for the city"},
	{"tech_hub", "Tech Hub", "commercial", 1100, 3, 0.70, 0.70, "A center for technology companies"},
}

// KeyPoints returns the landmark table scaled to a city of the given size,
// ordered by year. It uses no random draws.
func KeyPoints(citySize float64) []KeyPoint {
	out := make([]KeyPoint, len(landmarks))
	for i, l := range landmarks {
		out[i] = KeyPoint{
			ID:          l.id,
			Name:        l.name,
			Type:        l.kind,
			Year:        l.year,
			Importance:  l.imp,
			Position:    geometry.Pt(l.fx*citySize, l.fy*citySize),
			Description: l.desc,
		}
	}
	return out
}
