package cache

import (
	"fmt"
	"math"
)

// Key derives the cache key for a coordinate pair: both values rounded to two
// decimal places and joined as "lat,lon". Pairs that round alike share a key.
func Key(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", round2(lat), round2(lon))
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // fold -0 so "-0.00" never appears in a key
	}
	return r
}
