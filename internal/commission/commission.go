// Package commission computes the worker's cut of an order via ordered
// threshold tiers.
package commission

import "sales-tracker-bot/internal/domain/model"

// Tier maps a clients-count ceiling to a rate. A negative MaxClients means the
// tier is unbounded.
type Tier struct {
	MaxClients int
	Rate       float64
}

// Tiers are evaluated in order; the first tier whose ceiling is not exceeded
// wins. New tiers can be inserted without touching Calc.
var Tiers = []Tier{
	{MaxClients: 10, Rate: 0.05},
	{MaxClients: -1, Rate: 0.10},
}

// Calc returns the commission for an order of the given amount placed by a
// worker who currently has clientsCount clients, rounded to 2 decimal places.
func Calc(clientsCount int, amount float64) float64 {
	rate := Tiers[len(Tiers)-1].Rate
	for _, t := range Tiers {
		if t.MaxClients < 0 || clientsCount <= t.MaxClients {
			rate = t.Rate
			break
		}
	}
	return model.RoundMoney(amount * rate)
}
