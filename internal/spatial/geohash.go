package spatial

import (
	"github.com/mmcloughlin/geohash"
)

// DefaultCellPrecision gives cells of roughly 150 m x 150 m
const DefaultCellPrecision uint = 7

// CellKey encodes a point into a geohash cell key
// precision: number of characters in the geohash (1-12)
func CellKey(p GeoPoint, precision uint) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}
	return geohash.EncodeWithPrecision(p.Latitude, p.Longitude, precision)
}

// CellCenter decodes a geohash cell key into the center of the cell
func CellCenter(key string) GeoPoint {
	lat, lon := geohash.DecodeCenter(key)
	return GeoPoint{Latitude: lat, Longitude: lon}
}
