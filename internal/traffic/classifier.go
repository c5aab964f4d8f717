package traffic

import (
	"math/rand"

	"backend-driveshare/internal/shared/geo"
)

// Level buckets a route segment by congestion severity.
type Level string

const (
	LevelFree     Level = "free"
	LevelModerate Level = "moderate"
	LevelHeavy    Level = "heavy"
	LevelSevere   Level = "severe"
)

// Segment is one contiguous slice of the route polyline with its
// severity and render attributes. Recomputed per render pass, never
// persisted.
type Segment struct {
	Coordinates []geo.Point `json:"coordinates"`
	Level       Level       `json:"level"`
	SpeedKmh    float64     `json:"speed_kmh"`
	Color       string      `json:"color"`
	Width       int         `json:"width"`
}

// Source supplies the severity and nominal speed for a segment. The
// production intent is a live traffic-feed lookup keyed by the segment
// coordinates; RandomSource stands in until one exists.
type Source interface {
	Condition(coords []geo.Point) (Level, float64)
}

// RandomSource draws severities from fixed probability bands:
// 60% free, 20% moderate, 15% heavy, 5% severe.
type RandomSource struct {
	rng *rand.Rand
}

func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSource) Condition(_ []geo.Point) (Level, float64) {
	switch draw := s.rng.Float64(); {
	case draw < 0.60:
		return LevelFree, 50
	case draw < 0.80:
		return LevelModerate, 30
	case draw < 0.95:
		return LevelHeavy, 15
	default:
		return LevelSevere, 5
	}
}

// Classifier chunks a route polyline and labels each chunk via its
// Source.
type Classifier struct {
	source Source
}

func NewClassifier(source Source) *Classifier {
	return &Classifier{source: source}
}

// Classify walks the polyline in fixed strides of max(len/5, 2) points
// and emits one labeled Segment per chunk.
func (c *Classifier) Classify(route []geo.Point) []Segment {
	if len(route) < 2 {
		return nil
	}

	chunkSize := len(route) / 5
	if chunkSize < 2 {
		chunkSize = 2
	}

	var segments []Segment
	for start := 0; start < len(route); start += chunkSize {
		end := start + chunkSize
		if end > len(route) {
			end = len(route)
		}
		coords := route[start:end]

		level, speedKmh := c.source.Condition(coords)
		segments = append(segments, Segment{
			Coordinates: coords,
			Level:       level,
			SpeedKmh:    speedKmh,
			Color:       colorFor(level),
			Width:       widthFor(level),
		})
	}
	return segments
}

func colorFor(level Level) string {
	switch level {
	case LevelFree:
		return "#2ecc71"
	case LevelModerate:
		return "#f39c12"
	case LevelHeavy:
		return "#e74c3c"
	default:
		return "#8b0000"
	}
}

func widthFor(level Level) int {
	switch level {
	case LevelFree:
		return 3
	case LevelModerate:
		return 4
	case LevelHeavy:
		return 5
	default:
		return 6
	}
}
