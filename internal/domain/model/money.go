package model

import "math"

// RoundMoney rounds to 2 decimal places, half away from zero. All balances and
// amounts written to the record store go through this.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
