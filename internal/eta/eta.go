package eta

import (
	"fmt"
	"math"
	"time"
)

// DefaultSpeedKmh is the urban-driving assumption used when the caller
// has no speed estimate yet.
const DefaultSpeedKmh = 40.0

const (
	ArrivedLabel      = "Arrived"
	UnderAMinuteLabel = "Under a minute"
)

var nowFn = time.Now

// RemainingMinutes converts remaining distance at the given speed into
// whole minutes. Non-positive speed falls back to DefaultSpeedKmh.
func RemainingMinutes(remainingM, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return int(math.Round(remainingM / 1000 / speedKmh * 60))
}

// RemainingTimeLabel renders the remaining travel time as a short
// human-readable label.
func RemainingTimeLabel(remainingM, speedKmh float64) string {
	if remainingM <= 0 {
		return ArrivedLabel
	}
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}

	// check before rounding, otherwise 0.75 min rounds up past the
	// sentinel boundary
	exact := remainingM / 1000 / speedKmh * 60
	if exact < 1 {
		return UnderAMinuteLabel
	}

	minutes := int(math.Round(exact))
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := minutes / 60
	rem := minutes % 60
	if rem == 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rem)
}

// ArrivalClockTime projects the arrival onto the local wall clock,
// formatted HH:MM.
func ArrivalClockTime(remainingM, speedKmh float64) string {
	if remainingM <= 0 {
		return ArrivedLabel
	}

	minutes := RemainingMinutes(remainingM, speedKmh)
	return nowFn().Add(time.Duration(minutes) * time.Minute).Format("15:04")
}
