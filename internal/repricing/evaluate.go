package repricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resellsync/pkg/db/models"
)

// Decision is the outcome of evaluating one listing.
type Decision string

const (
	DecisionNone             Decision = "none"
	DecisionSkipSelf         Decision = "skip_self"
	DecisionStopLossHalt     Decision = "stop_loss_halt"
	DecisionSkipDuplicate    Decision = "skip_duplicate"
	DecisionReprice          Decision = "reprice"
	DecisionSkipNoMarket     Decision = "skip_no_market"
	DecisionSkipMalformedRef Decision = "skip_malformed_ref"
)

const defaultDuplicateWindow = 5 * time.Minute

// EvaluationInput is everything the decision function reads. Siblings must be
// the other eligible listings of the same platform, sku and size as persisted now.
type EvaluationInput struct {
	Listing         models.Listing
	MarketLowest    decimal.NullDecimal
	Siblings        []models.Listing
	LastMutation    *models.PriceMutation
	Now             time.Time
	DuplicateWindow time.Duration
}

// Evaluation is the decision plus the numbers that led to it.
type Evaluation struct {
	Decision       Decision
	Reason         string
	CommissionBPS  int
	CurrentPayout  int
	OurProjected   int
	SiblingLowest  *int
	NewPayout      int
	NewProjected   int
	MarketLowest   decimal.Decimal
	HasMarketPrice bool
}

// Evaluate decides what to do with one eligible listing. It performs no I/O.
func Evaluate(in EvaluationInput) Evaluation {
	listing := in.Listing
	bps := commissionOrDefault(listing.CommissionBPS)
	eval := Evaluation{CommissionBPS: bps}
	if listing.PayoutPrice != nil {
		eval.CurrentPayout = *listing.PayoutPrice
	}
	eval.OurProjected = ProjectedPrice(eval.CurrentPayout, bps)

	if !in.MarketLowest.Valid {
		eval.Decision = DecisionSkipNoMarket
		eval.Reason = "no market price observed"
		return eval
	}
	eval.HasMarketPrice = true
	eval.MarketLowest = in.MarketLowest.Decimal

	// a sibling holding the market lowest wins over "already lowest" so tied
	// siblings report skip_self; neither outcome writes
	if lowest, ok := lowestSiblingProjection(in.Siblings); ok {
		eval.SiblingLowest = &lowest
		if eval.MarketLowest.Round(0).IntPart() == int64(lowest) {
			eval.Decision = DecisionSkipSelf
			eval.Reason = fmt.Sprintf("market lowest %s is our own sibling listing", eval.MarketLowest.String())
			return eval
		}
	}

	if decimal.NewFromInt(int64(eval.OurProjected)).LessThanOrEqual(eval.MarketLowest) {
		eval.Decision = DecisionNone
		eval.Reason = "already lowest"
		return eval
	}

	eval.NewPayout = UndercutPayout(eval.MarketLowest, bps)
	eval.NewProjected = ProjectedPrice(eval.NewPayout, bps)

	if listing.StopLossPrice != nil && eval.NewPayout < *listing.StopLossPrice {
		eval.Decision = DecisionStopLossHalt
		eval.Reason = fmt.Sprintf("new payout %d below stop loss %d", eval.NewPayout, *listing.StopLossPrice)
		return eval
	}
	if eval.NewPayout <= 0 {
		eval.Decision = DecisionStopLossHalt
		eval.Reason = fmt.Sprintf("new payout %d is not positive", eval.NewPayout)
		return eval
	}

	window := in.DuplicateWindow
	if window <= 0 {
		window = defaultDuplicateWindow
	}
	if last := in.LastMutation; last != nil &&
		in.Now.Sub(last.CreatedAt) < window &&
		last.NewPayoutPrice == eval.NewPayout {
		eval.Decision = DecisionSkipDuplicate
		eval.Reason = "same mutation already attempted within the duplicate window"
		return eval
	}

	eval.Decision = DecisionReprice
	eval.Reason = fmt.Sprintf("Competitor undercut to %s", eval.MarketLowest.String())
	return eval
}

func lowestSiblingProjection(siblings []models.Listing) (int, bool) {
	lowest, found := 0, false
	for _, sibling := range siblings {
		if sibling.PayoutPrice == nil {
			continue
		}
		projected := ProjectedPrice(*sibling.PayoutPrice, commissionOrDefault(sibling.CommissionBPS))
		if !found || projected < lowest {
			lowest, found = projected, true
		}
	}
	return lowest, found
}
