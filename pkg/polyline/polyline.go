// Package polyline encodes and decodes route geometry using Google's polyline algorithm.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Decode decodes a polyline-encoded string into a line string.
// Precision is 5 decimal places, the format used by OpenRouteService.
func Decode(encoded string) orb.LineString {
	if encoded == "" {
		return nil
	}

	var ls orb.LineString
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lonDelta, next := decodeValue(encoded, index)
		index = next
		lon += lonDelta

		ls = append(ls, orb.Point{float64(lon) / 1e5, float64(lat) / 1e5})
	}

	return ls
}

func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes a line string. Points are orb order: [lon, lat].
func Encode(ls orb.LineString) string {
	if len(ls) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(ls)*4)
	prevLat := 0
	prevLon := 0

	for _, p := range ls {
		lat := int(math.Round(p.Lat() * 1e5))
		lon := int(math.Round(p.Lon() * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	buf = append(buf, byte(value)+63)

	return buf
}

// EncodeGeometry encodes the path of a route geometry.
// Multi line strings are joined in order; other geometry types encode to "".
func EncodeGeometry(g orb.Geometry) string {
	switch v := g.(type) {
	case orb.LineString:
		return Encode(v)
	case orb.MultiLineString:
		var joined orb.LineString
		for _, ls := range v {
			joined = append(joined, ls...)
		}
		return Encode(joined)
	default:
		return ""
	}
}

// Length returns the haversine length of a line string in meters.
func Length(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	return geo.LengthHaversine(ls)
}
