// Package pricing computes booking totals.  The fee and tax rates and
// the per-step rounding order are fixed business values; reproducing
// identical totals requires rounding after each step, not once at the
// end.
package pricing

import "math"

const (
	convenienceFeeRate = 0.15
	taxRate            = 0.18
)

// Quote is the priced breakdown of a booking.
type Quote struct {
	Subtotal       int64 `json:"subtotal"`
	ConvenienceFee int64 `json:"convenience_fee"`
	Taxes          int64 `json:"taxes"`
	FinalAmount    int64 `json:"final_amount"`
}

// Compute derives the full quote from a subtotal.  fee =
// round(subtotal × 0.15); tax = round((subtotal + fee) × 0.18);
// final = subtotal + fee + tax.
func Compute(subtotal int64) Quote {
	fee := round(float64(subtotal) * convenienceFeeRate)
	tax := round(float64(subtotal+fee) * taxRate)
	return Quote{
		Subtotal:       subtotal,
		ConvenienceFee: fee,
		Taxes:          tax,
		FinalAmount:    subtotal + fee + tax,
	}
}

func round(v float64) int64 { return int64(math.Round(v)) }
