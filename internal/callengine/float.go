package callengine

import "math"

func doubleBitsOf(f float64) uint64 { return math.Float64bits(f) }
