package motion

import "backend-driveshare/internal/shared/geo"

// DefaultAlpha is the exponential smoothing factor applied to raw GPS
// speeds. Higher values track the sensor more closely; lower values
// damp jitter harder.
const DefaultAlpha = 0.3

// DefaultHistorySize bounds the rolling sample window used for the
// average-speed estimate.
const DefaultHistorySize = 20

// Sample is one timestamped position observation.
type Sample struct {
	Lat         float64
	Lng         float64
	TimestampMs int64
}

// Smooth blends the current speed reading with the previous smoothed
// value. A zero previous value means cold start and the current reading
// passes through unchanged.
func Smooth(current, previous, alpha float64) float64 {
	if previous == 0 {
		return current
	}
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return alpha*current + (1-alpha)*previous
}

// History is a bounded, ordered window of position samples. Oldest
// samples are evicted first. One History belongs to exactly one tracked
// trip and must be reset when the trip changes.
type History struct {
	capacity int
	samples  []Sample
}

func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = DefaultHistorySize
	}
	return &History{capacity: capacity}
}

func (h *History) Add(s Sample) {
	h.samples = append(h.samples, s)
	if len(h.samples) > h.capacity {
		h.samples = h.samples[1:]
	}
}

func (h *History) Len() int {
	return len(h.samples)
}

func (h *History) Samples() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

func (h *History) Reset() {
	h.samples = nil
}

// AverageSpeed is the haversine path length across consecutive samples
// divided by the wall-clock span of the window, in m/s. Returns 0 when
// fewer than two samples exist or the span is not positive. The result
// is a scalar path speed, always >= 0.
func AverageSpeed(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}

	elapsedSec := float64(samples[len(samples)-1].TimestampMs-samples[0].TimestampMs) / 1000
	if elapsedSec <= 0 {
		return 0
	}

	totalM := 0.0
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		totalM += geo.DistanceM(prev.Lat, prev.Lng, cur.Lat, cur.Lng)
	}
	return totalM / elapsedSec
}
