package presenter

import (
	"math/rand"

	"github.com/rewired-gh/electcast/internal/dataset"
	"github.com/rewired-gh/electcast/internal/models"
)

// BoundingBox limits synthesized coordinates.
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// MapPoint places one constituency on a map.
type MapPoint struct {
	Constituency string  `json:"constituency" yaml:"constituency"`
	Latitude     float64 `json:"latitude" yaml:"latitude"`
	Longitude    float64 `json:"longitude" yaml:"longitude"`
	Synthetic    bool    `json:"synthetic" yaml:"synthetic"`
}

// MapPoints returns one point per record in order. Coordinates from the file are used
// as-is; the rest are drawn uniformly from box with a fixed seed, so the same file
// always produces the same map. These points are for display only.
func MapPoints(records []models.ConstituencyRecord, known map[string]dataset.Location, box BoundingBox, seed int64) []MapPoint {
	rng := rand.New(rand.NewSource(seed))
	points := make([]MapPoint, 0, len(records))
	for _, r := range records {
		if loc, ok := known[r.Constituency]; ok {
			points = append(points, MapPoint{Constituency: r.Constituency, Latitude: loc.Latitude, Longitude: loc.Longitude})
			continue
		}
		points = append(points, MapPoint{
			Constituency: r.Constituency,
			Latitude:     box.MinLatitude + rng.Float64()*(box.MaxLatitude-box.MinLatitude),
			Longitude:    box.MinLongitude + rng.Float64()*(box.MaxLongitude-box.MinLongitude),
			Synthetic:    true,
		})
	}
	return points
}
