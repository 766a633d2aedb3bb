// Package geometry converts between the pixel and percentage coordinate
// spaces of the annotation canvas, and derives layout values from element
// sizes.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit identifies how a Length is expressed.
type Unit uint8

const (
	// UnitNone is an unset length. It is omitted when encoded.
	UnitNone Unit = iota
	UnitPercent
	UnitPixel
	UnitAuto
)

// ErrInvalidLength is returned by ParseLength for unrecognised input.
var ErrInvalidLength = errors.New("invalid length")

// Length is one CSS-like dimension, e.g. "12.5%", "40px" or "auto".
type Length struct {
	Value float64
	Unit  Unit
}

// Percent returns a percentage length.
func Percent(v float64) Length { return Length{Value: v, Unit: UnitPercent} }

// Pixels returns a pixel length.
func Pixels(v float64) Length { return Length{Value: v, Unit: UnitPixel} }

// Auto returns the "auto" length.
func Auto() Length { return Length{Unit: UnitAuto} }

// ParseLength parses s. The empty string yields an unset length. A bare
// number is read as pixels.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Length{}, nil
	case s == "auto":
		return Auto(), nil
	}
	unit := UnitPixel
	num := s
	switch {
	case strings.HasSuffix(s, "%"):
		unit, num = UnitPercent, strings.TrimSuffix(s, "%")
	case strings.HasSuffix(s, "px"):
		num = strings.TrimSuffix(s, "px")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Length{}, fmt.Errorf("%w: %q", ErrInvalidLength, s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// MustParseLength is ParseLength for literals known to be valid.
func MustParseLength(s string) Length {
	l, err := ParseLength(s)
	if err != nil {
		panic(err)
	}
	return l
}

// IsSet reports whether the length carries a value.
func (l Length) IsSet() bool { return l.Unit != UnitNone }

func (l Length) String() string {
	switch l.Unit {
	case UnitPercent:
		return formatNumber(l.Value) + "%"
	case UnitPixel:
		return formatNumber(l.Value) + "px"
	case UnitAuto:
		return "auto"
	default:
		return ""
	}
}

// Resolve converts the length to pixels against extent. Auto and unset
// lengths cannot be resolved.
func (l Length) Resolve(extent float64) (float64, bool) {
	switch l.Unit {
	case UnitPercent:
		return l.Value / 100 * extent, true
	case UnitPixel:
		return l.Value, true
	default:
		return 0, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Length) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Length) UnmarshalText(b []byte) error {
	v, err := ParseLength(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RoundToTwo rounds v to two decimal places, half away from zero.
func RoundToTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
