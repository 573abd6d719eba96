package charge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkrogh/nightcharge/core/model"
)

func TestTarget(t *testing.T) {
	lim := Limits{CheapThreshold: 280, MinPercent: 60, MaxPercent: 90}

	tests := []struct {
		name string
		dec  model.PriceDecision
		want int
	}{
		{"cheap and no better tomorrow", model.PriceDecision{TonightPrice: 150}, 90},
		{"cheap but tomorrow better", model.PriceDecision{TonightPrice: 150, BetterPriceTomorrow: true}, 60},
		{"not cheap", model.PriceDecision{TonightPrice: 300}, 60},
		{"exactly at threshold stays low", model.PriceDecision{TonightPrice: 280}, 60},
		{"just under threshold", model.PriceDecision{TonightPrice: 279.99}, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Target(tt.dec, lim))
		})
	}
}

func TestTargetIsPure(t *testing.T) {
	lim := Limits{CheapThreshold: 1.5, MinPercent: 60, MaxPercent: 90}
	dec := model.PriceDecision{TonightPrice: 1.2}
	first := Target(dec, lim)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Target(dec, lim))
	}
}
