package wire

import "math"

func doubleBits(f float64) uint64   { return math.Float64bits(f) }
func bitsToDouble(u uint64) float64 { return math.Float64frombits(u) }
