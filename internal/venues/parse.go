package venues

import "strconv"

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseFloatOrZero(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// firstNonZero returns the first non-zero value, or 0.
func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
