package repricing

import "github.com/shopspring/decimal"

// DefaultCommissionBPS applies when a listing carries no commission (14.00%).
const DefaultCommissionBPS = 1400

var bpsScale = decimal.NewFromInt(10000)

func commissionOrDefault(bps *int) int {
	if bps == nil || *bps < 0 {
		return DefaultCommissionBPS
	}
	return *bps
}

// ProjectedPrice is the customer-facing price implied by payout: round(payout * (1 + c)).
func ProjectedPrice(payout, commissionBPS int) int {
	gross := decimal.NewFromInt(int64(payout)).
		Mul(decimal.NewFromInt(int64(10000 + commissionBPS))).
		Div(bpsScale)
	return int(gross.Round(0).IntPart())
}

// UndercutPayout is the largest payout whose projection stays one unit below
// marketLowest: floor((marketLowest - 1) / (1 + c)).
func UndercutPayout(marketLowest decimal.Decimal, commissionBPS int) int {
	target := marketLowest.Sub(decimal.NewFromInt(1)).Mul(bpsScale)
	return int(target.Div(decimal.NewFromInt(int64(10000 + commissionBPS))).Floor().IntPart())
}
