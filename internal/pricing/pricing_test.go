package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRoundsEachStep(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		want     Quote
	}{
		{
			name:     "round numbers",
			subtotal: 1000,
			want:     Quote{Subtotal: 1000, ConvenienceFee: 150, Taxes: 207, FinalAmount: 1357},
		},
		{
			// fee 84.0, tax base 644, tax 115.92 rounds to 116
			name:     "tax rounds up",
			subtotal: 560,
			want:     Quote{Subtotal: 560, ConvenienceFee: 84, Taxes: 116, FinalAmount: 760},
		},
		{
			name:     "zero",
			subtotal: 0,
			want:     Quote{},
		},
		{
			// fee 0.15 rounds to 0, tax 0.18 rounds to 0
			name:     "tiny amounts round down",
			subtotal: 1,
			want:     Quote{Subtotal: 1, ConvenienceFee: 0, Taxes: 0, FinalAmount: 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.subtotal))
		})
	}
}

func TestComputeFinalIsSumOfParts(t *testing.T) {
	for _, subtotal := range []int64{1, 99, 250, 560, 1000, 123457} {
		q := Compute(subtotal)
		assert.Equal(t, q.Subtotal+q.ConvenienceFee+q.Taxes, q.FinalAmount, "subtotal %d", subtotal)
	}
}
