package graph

import "fmt"

// Canvas bounds for derived positions.
const (
	CanvasWidth  = 500
	CanvasHeight = 500
)

// Hash lanes. Each lane is a multiplicative rolling hash; x and y use
// different seeds and multipliers so the two coordinates are uncorrelated.
// These constants are part of the on-screen identity of every system and
// must not change.
const (
	colorSeed, colorMul = 5381, 33
	xSeed, xMul         = 17, 31
	ySeed, yMul         = 2166136261, 16777619
)

func rollingHash(id string, seed, mul uint32) uint32 {
	h := seed
	for i := 0; i < len(id); i++ {
		h = h*mul + uint32(id[i])
	}
	// final avalanche so short ids still spread over all bits
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	return h
}

// ColorOf derives a stable color from an identifier.
func ColorOf(id string) Color {
	h := rollingHash(id, colorSeed, colorMul)
	r := (h >> 16) & 0xff
	g := (h >> 8) & 0xff
	b := h & 0xff
	return Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}

// PositionOf derives a stable canvas position from an identifier.
func PositionOf(id string) Position {
	return Position{
		X: float64(rollingHash(id, xSeed, xMul) % CanvasWidth),
		Y: float64(rollingHash(id, ySeed, yMul) % CanvasHeight),
	}
}

// attributeKey picks the identifier visual attributes derive from: the
// record id, falling back to the name for records the store never keyed.
func attributeKey(recordID, name string) string {
	if recordID != "" {
		return recordID
	}
	return name
}
