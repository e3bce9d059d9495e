package temporal

import "github.com/talgya/metro/internal/city"

const gridRoadWidth = 20.0

// RoadGrid is the founding skeleton: a north-south cardo and an east-west
// decumanus crossing at the city centre. It depends on the city size only.
type RoadGrid struct {
	Cardo     city.Road `json:"cardo"`
	Decumanus city.Road `json:"decumanus"`
}

// NewRoadGrid lays the skeleton across the full city.
func NewRoadGrid(citySize float64) RoadGrid {
	c := citySize / 2
	return RoadGrid{
		Cardo:     city.Road{Kind: city.RoadCardo, X1: c, Y1: 0, X2: c, Y2: citySize, Width: gridRoadWidth, Importance: 5},
		Decumanus: city.Road{Kind: city.RoadDecumanus, X1: 0, Y1: c, X2: citySize, Y2: c, Width: gridRoadWidth, Importance: 5},
	}
}

// Roads returns both skeleton roads as a list.
func (g RoadGrid) Roads() []city.Road {
	return []city.Road{g.Cardo, g.Decumanus}
}
