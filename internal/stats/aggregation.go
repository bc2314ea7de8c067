package stats

import (
	"github.com/shopspring/decimal"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sum returns the sum of all values
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// SumMap returns the sum of all map values
func SumMap[K comparable](m map[K]float64) float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

// Round rounds v to the given number of decimal places, half away from zero.
// The value is converted through its shortest decimal representation, so
// 1.005 rounds to 1.01.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundMap rounds every value of m in place and returns it
func RoundMap[K comparable](m map[K]float64, places int32) map[K]float64 {
	for k, v := range m {
		m[k] = Round(v, places)
	}
	return m
}
