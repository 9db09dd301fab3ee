package repricing

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/resellsync/internal/listings"
	"github.com/angelmondragon/resellsync/internal/notify"
	"github.com/angelmondragon/resellsync/pkg/db"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
	"github.com/angelmondragon/resellsync/pkg/metrics"
)

const defaultCallTimeout = 30 * time.Second

// Throttle gates alerts per listing and error kind.
type Throttle interface {
	ShouldNotify(ctx context.Context, listingID int64, kind enums.ErrorKind) (bool, error)
	RecordNotified(ctx context.Context, listingID int64, kind enums.ErrorKind, message string) error
	Clear(ctx context.Context, listingID int64) error
}

// EngineParams wire the repricing engine.
type EngineParams struct {
	Logger          *logger.Logger
	DB              db.TxRunner
	Listings        listings.Repository
	History         listings.HistoryRepository
	Mutations       MutationRepository
	Applier         PriceApplier
	ValidateRef     RefValidator
	Throttle        Throttle
	Notifier        notify.Notifier
	Metrics         *metrics.RepricerMetrics
	DuplicateWindow time.Duration
	CallTimeout     time.Duration
}

// CycleStats summarizes one repricing cycle.
type CycleStats struct {
	Processed        int              `json:"processed"`
	Repriced         int              `json:"repriced"`
	Skipped          int              `json:"skipped"`
	HaltedOnStopLoss int              `json:"halted_on_stop_loss"`
	Errors           int              `json:"errors"`
	Decisions        map[Decision]int `json:"decisions"`
	Duration         time.Duration    `json:"duration"`
}

// Engine evaluates every eligible listing and pushes undercut prices.
type Engine struct {
	logg            *logger.Logger
	listings        listings.Repository
	mutations       MutationRepository
	throttle        Throttle
	notifier        notify.Notifier
	metrics         *metrics.RepricerMetrics
	duplicateWindow time.Duration
	mutator         *mutator
	now             func() time.Time
}

// NewEngine validates the wiring and applies defaults.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Listings == nil || params.History == nil || params.Mutations == nil {
		return nil, fmt.Errorf("repositories required")
	}
	if params.Applier == nil {
		return nil, fmt.Errorf("price applier required")
	}
	if params.Throttle == nil {
		return nil, fmt.Errorf("throttle required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(params.Logger)
	}
	window := params.DuplicateWindow
	if window <= 0 {
		window = defaultDuplicateWindow
	}
	timeout := params.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	e := &Engine{
		logg:            params.Logger,
		listings:        params.Listings,
		mutations:       params.Mutations,
		throttle:        params.Throttle,
		notifier:        notifier,
		metrics:         params.Metrics,
		duplicateWindow: window,
		now:             time.Now,
	}
	e.mutator = &mutator{
		db:          params.DB,
		listings:    params.Listings,
		history:     params.History,
		mutations:   params.Mutations,
		applier:     params.Applier,
		validateRef: params.ValidateRef,
		metrics:     params.Metrics,
		callTimeout: timeout,
		now:         func() time.Time { return e.now() },
	}
	return e, nil
}

// RunCycle processes every eligible listing sequentially in ascending id order.
// Per-listing failures are counted; only failing to load the candidate set is returned.
func (e *Engine) RunCycle(ctx context.Context) (CycleStats, error) {
	start := e.now()
	stats := CycleStats{Decisions: map[Decision]int{}}

	candidates, err := e.listings.ListRepriceEligible(ctx)
	if err != nil {
		return stats, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reprice candidates")
	}
	e.logg.Info(e.logg.WithField(ctx, "candidates", len(candidates)), "repricing cycle starting")

	for _, listing := range candidates {
		if ctx.Err() != nil {
			break
		}
		stats.Processed++
		decision, err := e.processListing(ctx, listing)
		if err != nil {
			stats.Errors++
			e.logg.Error(e.logg.WithListingID(ctx, listing.ID), "repricing listing failed", err)
		}
		if decision == "" {
			continue
		}
		stats.Decisions[decision]++
		if e.metrics != nil {
			e.metrics.IncDecision(string(decision))
		}
		switch decision {
		case DecisionReprice:
			if err == nil {
				stats.Repriced++
			}
		case DecisionStopLossHalt:
			stats.HaltedOnStopLoss++
		default:
			stats.Skipped++
		}
	}

	stats.Duration = e.now().Sub(start)
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"processed":           stats.Processed,
		"repriced":            stats.Repriced,
		"skipped":             stats.Skipped,
		"halted_on_stop_loss": stats.HaltedOnStopLoss,
		"errors":              stats.Errors,
		"duration_ms":         stats.Duration.Milliseconds(),
	}), "repricing cycle complete")
	return stats, ctx.Err()
}

// processListing returns the decision taken and any error that made it fail.
func (e *Engine) processListing(ctx context.Context, listing models.Listing) (Decision, error) {
	ctx = e.logg.WithListingID(ctx, listing.ID)

	// siblings are re-read per listing so earlier reprices in this cycle are visible
	siblings, err := e.listings.ListEligibleSiblings(ctx, listing)
	if err != nil {
		return "", fmt.Errorf("load siblings: %w", err)
	}
	last, err := e.mutations.Latest(ctx, listing.ID)
	if err != nil {
		return "", fmt.Errorf("load last mutation: %w", err)
	}

	eval := Evaluate(EvaluationInput{
		Listing:         listing,
		MarketLowest:    listing.CurrentPrice,
		Siblings:        siblings,
		LastMutation:    last,
		Now:             e.now().UTC(),
		DuplicateWindow: e.duplicateWindow,
	})
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"decision":      eval.Decision,
		"reason":        eval.Reason,
		"our_projected": eval.OurProjected,
		"new_payout":    eval.NewPayout,
	})

	switch eval.Decision {
	case DecisionStopLossHalt:
		e.logg.Warn(logCtx, "stop loss reached")
		e.alert(ctx, listing, enums.ErrorKindStopLoss, eval.Reason, map[string]any{
			"current_payout": eval.CurrentPayout,
			"new_payout":     eval.NewPayout,
			"stop_loss":      listing.StopLossPrice,
			"market_lowest":  eval.MarketLowest.String(),
		})
		return eval.Decision, nil
	case DecisionReprice:
	default:
		e.logg.Debug(logCtx, "listing left unchanged")
		return eval.Decision, nil
	}

	if err := e.mutator.checkRefs(listing.ExternalListingRefs.Clean()); err != nil {
		e.logg.Warn(e.logg.WithField(logCtx, "ref_error", err.Error()), "skipping listing with malformed references")
		return DecisionSkipMalformedRef, nil
	}

	mutation, err := e.mutator.apply(ctx, mutationRequest{
		listing:       listing,
		newPayout:     eval.NewPayout,
		commissionBPS: eval.CommissionBPS,
		trigger:       enums.PriceTriggerAutoUndercut,
		reason:        eval.Reason,
		marketLowest:  listing.CurrentPrice,
	})
	if err != nil {
		return DecisionReprice, err
	}
	if !mutation.Success {
		msg := "price update failed"
		if mutation.ErrorMessage != nil {
			msg = *mutation.ErrorMessage
		}
		e.alert(ctx, listing, enums.ErrorKindAPIError, msg, map[string]any{
			"new_payout":    eval.NewPayout,
			"market_lowest": eval.MarketLowest.String(),
		})
		return DecisionReprice, pkgerrors.New(pkgerrors.CodeUpstream, msg)
	}
	e.logg.Info(e.logg.WithField(logCtx, "new_projected", mutation.NewProjectedPrice), "listing repriced")
	e.notifyMutation(ctx, listing, mutation)
	return DecisionReprice, nil
}

// notifyMutation reports a successful reprice on every channel, unthrottled.
func (e *Engine) notifyMutation(ctx context.Context, listing models.Listing, mutation models.PriceMutation) {
	fields := map[string]any{
		"new_payout":    mutation.NewPayoutPrice,
		"new_projected": mutation.NewProjectedPrice,
		"market_lowest": mutation.MarketLowestAtTrigger.Decimal.String(),
	}
	if mutation.OldPayoutPrice != nil {
		fields["old_payout"] = *mutation.OldPayoutPrice
	}
	if mutation.OldProjectedPrice != nil {
		fields["old_projected"] = *mutation.OldProjectedPrice
	}
	alert := notify.Alert{
		Kind:        enums.ErrorKindPriceMutation,
		ListingID:   listing.ID,
		ProductName: listing.ProductName,
		SKU:         listing.ProductSKU,
		Size:        listing.SizeKey(),
		Message:     mutation.TriggerReason,
		Fields:      fields,
		OccurredAt:  mutation.CreatedAt,
	}
	if err := e.notifier.SendAlert(ctx, alert); err != nil {
		e.logg.Error(e.logg.WithField(ctx, "alert_kind", alert.Kind), "mutation notification failed", err)
	}
}

// alert delivers a throttled notification. Failures are logged, never returned.
func (e *Engine) alert(ctx context.Context, listing models.Listing, kind enums.ErrorKind, message string, fields map[string]any) {
	ok, err := e.throttle.ShouldNotify(ctx, listing.ID, kind)
	if err != nil {
		e.logg.Error(ctx, "throttle lookup failed", err)
		return
	}
	if !ok {
		return
	}
	alert := notify.Alert{
		Kind:        kind,
		ListingID:   listing.ID,
		ProductName: listing.ProductName,
		SKU:         listing.ProductSKU,
		Size:        listing.SizeKey(),
		Message:     message,
		Fields:      fields,
		OccurredAt:  e.now().UTC(),
	}
	if err := e.notifier.SendAlert(ctx, alert); err != nil {
		e.logg.Error(e.logg.WithField(ctx, "alert_kind", kind), "alert delivery failed", err)
		return
	}
	if err := e.throttle.RecordNotified(ctx, listing.ID, kind, message); err != nil {
		e.logg.Error(ctx, "recording alert failed", err)
	}
}
