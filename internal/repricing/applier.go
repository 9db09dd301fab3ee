package repricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/internal/listings"
	"github.com/angelmondragon/resellsync/pkg/db"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	"github.com/angelmondragon/resellsync/pkg/metrics"
)

// ListingResult is the upstream outcome for one external listing reference.
type ListingResult struct {
	Ref     string
	Success bool
	Error   string
}

// ApplyResult summarizes one price-apply call.
type ApplyResult struct {
	Success      bool
	UpdatedCount int
	Results      []ListingResult
}

// PriceApplier pushes a new payout price to every external listing reference.
type PriceApplier interface {
	ApplyPayoutPrice(ctx context.Context, refs []string, newPayout int) (ApplyResult, error)
}

// RefValidator rejects references that cannot be sent upstream.
type RefValidator func(ref string) error

// mutator applies a payout upstream and records the attempt. Shared by the
// automated cycle and the manual override path.
type mutator struct {
	db          db.TxRunner
	listings    listings.Repository
	history     listings.HistoryRepository
	mutations   MutationRepository
	applier     PriceApplier
	validateRef RefValidator
	metrics     *metrics.RepricerMetrics
	callTimeout time.Duration
	now         func() time.Time
}

type mutationRequest struct {
	listing       models.Listing
	newPayout     int
	commissionBPS int
	trigger       enums.PriceTriggerType
	reason        string
	marketLowest  decimal.NullDecimal
}

func (m *mutator) checkRefs(refs []string) error {
	if len(refs) == 0 {
		return fmt.Errorf("listing has no external listing references")
	}
	if m.validateRef == nil {
		return nil
	}
	for _, ref := range refs {
		if err := m.validateRef(ref); err != nil {
			return fmt.Errorf("malformed listing reference %q: %w", ref, err)
		}
	}
	return nil
}

// apply calls upstream and persists the outcome. The returned error is non-nil
// only when persistence failed; upstream failure is reported through the
// mutation's Success flag.
func (m *mutator) apply(ctx context.Context, req mutationRequest) (models.PriceMutation, error) {
	refs := []string(req.listing.ExternalListingRefs.Clean())

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	started := time.Now()
	result, applyErr := m.applier.ApplyPayoutPrice(callCtx, refs, req.newPayout)
	cancel()
	success := applyErr == nil && result.Success && result.UpdatedCount >= len(refs)
	if m.metrics != nil {
		m.metrics.ObserveApply(success, time.Since(started))
	}

	msg := ""
	if !success {
		msg = upstreamFailureMessage(applyErr, result, len(refs))
	}
	return m.record(ctx, req, success, msg)
}

// reject appends a failed mutation without calling upstream.
func (m *mutator) reject(ctx context.Context, req mutationRequest, reason error) (models.PriceMutation, error) {
	return m.record(ctx, req, false, reason.Error())
}

// record appends the mutation row. A successful mutation also writes the
// listing payout, projected price and both ledgers in the same transaction.
func (m *mutator) record(ctx context.Context, req mutationRequest, success bool, errMsg string) (models.PriceMutation, error) {
	newProjected := ProjectedPrice(req.newPayout, req.commissionBPS)
	now := m.now().UTC()
	mutation := models.PriceMutation{
		ListingID:             req.listing.ID,
		OldPayoutPrice:        req.listing.PayoutPrice,
		NewPayoutPrice:        req.newPayout,
		NewProjectedPrice:     newProjected,
		TriggerType:           req.trigger,
		TriggerReason:         req.reason,
		MarketLowestAtTrigger: req.marketLowest,
		Success:               success,
		CreatedAt:             now,
	}
	if req.listing.PayoutPrice != nil {
		oldProjected := ProjectedPrice(*req.listing.PayoutPrice, req.commissionBPS)
		mutation.OldProjectedPrice = &oldProjected
	}
	if !success {
		mutation.ErrorMessage = &errMsg
	}

	err := m.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := m.mutations.WithTx(tx).Create(ctx, &mutation); err != nil {
			return fmt.Errorf("insert price mutation: %w", err)
		}
		if !success {
			return nil
		}
		if err := m.listings.WithTx(tx).UpdatePayout(ctx, req.listing.ID, req.newPayout, newProjected, now); err != nil {
			return fmt.Errorf("update listing payout: %w", err)
		}
		history := m.history.WithTx(tx)
		if err := history.InsertPrice(ctx, []models.PriceHistoryEntry{{
			ListingID:  req.listing.ID,
			Price:      decimal.NewFromInt(int64(newProjected)),
			RecordedAt: now,
		}}); err != nil {
			return fmt.Errorf("insert price history: %w", err)
		}
		entry := models.CustomFieldHistoryEntry{
			ListingID:  req.listing.ID,
			FieldName:  models.FieldPayoutPrice,
			NewValue:   strconv.Itoa(req.newPayout),
			RecordedAt: now,
		}
		if req.listing.PayoutPrice != nil {
			old := strconv.Itoa(*req.listing.PayoutPrice)
			entry.OldValue = &old
		}
		if err := history.InsertCustomFields(ctx, []models.CustomFieldHistoryEntry{entry}); err != nil {
			return fmt.Errorf("insert payout history: %w", err)
		}
		return nil
	})
	return mutation, err
}

func upstreamFailureMessage(err error, result ApplyResult, expected int) string {
	if err != nil {
		return err.Error()
	}
	for _, r := range result.Results {
		if !r.Success && r.Error != "" {
			return fmt.Sprintf("updated %d of %d listings: %s", result.UpdatedCount, expected, r.Error)
		}
	}
	return fmt.Sprintf("updated %d of %d listings", result.UpdatedCount, expected)
}
