package service

import (
	"math"
	"regexp"

	apperrors "wastepoints/internal/errors"
)

// MaxPoints is the largest amount a single operation accepts. Larger values
// cannot be represented exactly by a JSON number.
const MaxPoints = 1 << 53

var serialPattern = regexp.MustCompile(`^[A-Z0-9]{11,15}$`)

// ParsePoints converts a requested amount to whole points. Non-finite,
// non-positive and fractional values are rejected, never rounded.
func ParsePoints(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.ErrInvalidAmount
	}
	if v <= 0 || v != math.Trunc(v) || v > MaxPoints {
		return 0, apperrors.ErrInvalidAmount
	}
	return int64(v), nil
}

// ValidSerial reports whether serial looks like a device serial number.
// The empty serial is valid: awards need not carry one.
func ValidSerial(serial string) bool {
	return serial == "" || serialPattern.MatchString(serial)
}
