// Package units converts between US customary and metric units. Conversions
// are applied only when presenting results; computation stays in miles and
// gallons because tax rates are defined per gallon.
package units

import (
	"fmt"
	"strings"
)

// Conversion factors
const (
	KmPerMile    = 1.609344
	LitersPerGal = 3.78541
)

// System is a unit system used for presentation
type System string

const (
	US     System = "us"
	Metric System = "metric"
)

// ParseSystem parses a unit system name, defaulting to US
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "us", "imperial":
		return US, nil
	case "metric", "si":
		return Metric, nil
	}
	return US, fmt.Errorf("unknown unit system: %q", s)
}

// MiToKm converts miles to kilometers
func MiToKm(mi float64) float64 { return mi * KmPerMile }

// KmToMi converts kilometers to miles
func KmToMi(km float64) float64 { return km / KmPerMile }

// GalToL converts US gallons to liters
func GalToL(gal float64) float64 { return gal * LitersPerGal }

// LToGal converts liters to US gallons
func LToGal(l float64) float64 { return l / LitersPerGal }

// MPGToKmPerL converts miles per gallon to kilometers per liter
func MPGToKmPerL(mpg float64) float64 { return mpg * KmPerMile / LitersPerGal }

// KmPerLToMPG converts kilometers per liter to miles per gallon
func KmPerLToMPG(kmpl float64) float64 { return kmpl * LitersPerGal / KmPerMile }

// Distance converts miles into the system's distance unit
func (s System) Distance(mi float64) float64 {
	if s == Metric {
		return MiToKm(mi)
	}
	return mi
}

// Volume converts gallons into the system's volume unit
func (s System) Volume(gal float64) float64 {
	if s == Metric {
		return GalToL(gal)
	}
	return gal
}

// Efficiency converts MPG into the system's efficiency unit
func (s System) Efficiency(mpg float64) float64 {
	if s == Metric {
		return MPGToKmPerL(mpg)
	}
	return mpg
}

// FormatDistance formats miles with 1 decimal place
func FormatDistance(mi float64, s System) string {
	if s == Metric {
		return fmt.Sprintf("%.1f km", MiToKm(mi))
	}
	return fmt.Sprintf("%.1f mi", mi)
}

// FormatVolume formats gallons with 2 decimal places
func FormatVolume(gal float64, s System) string {
	if s == Metric {
		return fmt.Sprintf("%.2f L", GalToL(gal))
	}
	return fmt.Sprintf("%.2f gal", gal)
}

// FormatEfficiency formats MPG with 2 decimal places
func FormatEfficiency(mpg float64, s System) string {
	if s == Metric {
		return fmt.Sprintf("%.2f km/L", MPGToKmPerL(mpg))
	}
	return fmt.Sprintf("%.2f MPG", mpg)
}
