package pricing

import (
	"errors"
	"fmt"

	"github.com/mkrogh/nightcharge/core/model"
)

// ErrDataUnavailable indicates that no usable price could be derived
// for the run. There is nothing to decide; callers must not proceed to
// a target selection.
var ErrDataUnavailable = errors.New("price data unavailable")

// Normalize derives tonight's price from the two fetched day series.
//
// When tomorrow has been published, tonight's price is tomorrow's
// midnight hour and the following night (~23:00 tomorrow) is compared
// against it. When tomorrow is not yet out, the last hour of today is
// the best stand-in for tonight and no comparison is possible.
func Normalize(today, tomorrow model.PriceSeries) (model.PriceDecision, error) {
	if !tomorrow.Available() {
		if !today.Available() {
			return model.PriceDecision{}, fmt.Errorf("%w: neither today nor tomorrow is published", ErrDataUnavailable)
		}
		last := today.Last()
		if !last.Known {
			return model.PriceDecision{}, fmt.Errorf("%w: today's series is only partially published", ErrDataUnavailable)
		}
		return model.PriceDecision{TonightPrice: last.Value}, nil
	}

	tonight := tomorrow.First()
	tomorrowNight := tomorrow.Last()
	if !tomorrowNight.Known {
		// Published days are complete per the feed contract, but never
		// let an unknown value win a comparison.
		return model.PriceDecision{TonightPrice: tonight.Value}, nil
	}
	return model.PriceDecision{
		TonightPrice: tonight.Value,
		// Ties favor acting tonight, the sooner decision point.
		BetterPriceTomorrow: tomorrowNight.Value < tonight.Value,
	}, nil
}
