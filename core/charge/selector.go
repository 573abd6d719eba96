package charge

import "github.com/mkrogh/nightcharge/core/model"

// Limits holds the two configured charge-limit tiers and the price
// threshold under which tonight counts as cheap.
type Limits struct {
	CheapThreshold float64
	MinPercent     int
	MaxPercent     int
}

// Target maps a price decision to a charge-limit percentage. The high
// tier is only committed to when tonight is strictly below the
// threshold and not dominated by an even cheaper tomorrow night; a
// future run, closer to that night, makes the call in that case.
func Target(dec model.PriceDecision, lim Limits) int {
	if dec.TonightPrice < lim.CheapThreshold && !dec.BetterPriceTomorrow {
		return lim.MaxPercent
	}
	return lim.MinPercent
}
