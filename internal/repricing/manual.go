package repricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/internal/listings"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
	"github.com/angelmondragon/resellsync/pkg/pagination"
)

// ManualService is the dashboard-facing override surface. Every write goes
// through the same audit path as the automated cycle and clears the alert throttle.
type ManualService struct {
	logg      *logger.Logger
	listings  listings.Repository
	mutations MutationRepository
	throttle  Throttle
	mutator   *mutator
	now       func() time.Time
}

// NewManualService shares the engine's wiring.
func NewManualService(params EngineParams) (*ManualService, error) {
	engine, err := NewEngine(params)
	if err != nil {
		return nil, err
	}
	return &ManualService{
		logg:      engine.logg,
		listings:  engine.listings,
		mutations: engine.mutations,
		throttle:  engine.throttle,
		mutator:   engine.mutator,
		now:       time.Now,
	}, nil
}

// SetPayoutPrice pushes payout upstream for the listing and records a manual mutation.
// Malformed references return CodeValidation and upstream rejection returns
// CodeUpstream; both still record a failed mutation and clear the throttle.
func (s *ManualService) SetPayoutPrice(ctx context.Context, listingID int64, payout int, reason string) (models.PriceMutation, error) {
	if payout <= 0 {
		return models.PriceMutation{}, pkgerrors.New(pkgerrors.CodeValidation, "payout price must be positive")
	}
	listing, err := s.load(ctx, listingID)
	if err != nil {
		return models.PriceMutation{}, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Manual price update"
	}
	req := mutationRequest{
		listing:       *listing,
		newPayout:     payout,
		commissionBPS: commissionOrDefault(listing.CommissionBPS),
		trigger:       enums.PriceTriggerManual,
		reason:        reason,
		marketLowest:  listing.CurrentPrice,
	}

	// a rejected reference is still an attempt and lands in the audit log
	if refErr := s.mutator.checkRefs(listing.ExternalListingRefs.Clean()); refErr != nil {
		mutation, err := s.mutator.reject(ctx, req, refErr)
		if err != nil {
			return mutation, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record manual price update")
		}
		s.clearThrottle(ctx, listingID)
		return mutation, pkgerrors.Wrap(pkgerrors.CodeValidation, refErr, "listing references cannot be updated").
			WithDetails(map[string]any{"mutation_id": mutation.ID})
	}

	mutation, err := s.mutator.apply(ctx, req)
	if err != nil {
		return mutation, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record manual price update")
	}
	s.clearThrottle(ctx, listingID)
	if !mutation.Success {
		msg := "marketplace rejected the price update"
		if mutation.ErrorMessage != nil {
			msg = *mutation.ErrorMessage
		}
		return mutation, pkgerrors.New(pkgerrors.CodeUpstream, msg).WithDetails(map[string]any{"mutation_id": mutation.ID})
	}
	return mutation, nil
}

func (s *ManualService) clearThrottle(ctx context.Context, listingID int64) {
	if err := s.throttle.Clear(ctx, listingID); err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, listingID), "clearing alert throttle failed", err)
	}
}

// SetAutoReprice toggles automated repricing for the listing.
func (s *ManualService) SetAutoReprice(ctx context.Context, listingID int64, enabled bool) error {
	return s.updateSettings(ctx, listingID, map[string]any{"auto_reprice_enabled": enabled})
}

// SetStopLoss sets or clears (nil) the minimum acceptable payout.
func (s *ManualService) SetStopLoss(ctx context.Context, listingID int64, stopLoss *int) error {
	if stopLoss != nil && *stopLoss < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stop loss must not be negative")
	}
	var value any
	if stopLoss != nil {
		value = *stopLoss
	}
	return s.updateSettings(ctx, listingID, map[string]any{"stop_loss_price": value})
}

// Mutations pages through a listing's audit log, newest first.
func (s *ManualService) Mutations(ctx context.Context, listingID int64, params pagination.Params) ([]models.PriceMutation, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	normalized := pagination.NormalizeLimit(params.Limit)
	rows, err := s.mutations.ListByListing(ctx, listingID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price mutations")
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}), nil
	}
	return rows, "", nil
}

func (s *ManualService) updateSettings(ctx context.Context, listingID int64, updates map[string]any) error {
	updates["updated_at"] = s.now().UTC()
	if err := s.listings.UpdateSettings(ctx, listingID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing settings")
	}
	if err := s.throttle.Clear(ctx, listingID); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithListingID(ctx, listingID), map[string]any{"changes": fmt.Sprint(updates)}), "listing settings updated")
	return nil
}

func (s *ManualService) load(ctx context.Context, listingID int64) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return listing, nil
}
