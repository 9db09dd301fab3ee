package listings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/pagination"
)

// ListParams filters the paginated listing read.
type ListParams struct {
	PlatformID *uuid.UUID
	pagination.Params
}

// ListResult is one page of listings.
type ListResult struct {
	Listings   []models.Listing
	NextCursor string
}

// HistoryParams selects one ledger page for a listing.
type HistoryParams struct {
	ListingID int64
	FieldName string
	pagination.Params
}

// Service exposes read access to listing state and its ledgers.
type Service struct {
	listings Repository
	history  HistoryRepository
}

// NewService builds the read service.
func NewService(listings Repository, history HistoryRepository) (*Service, error) {
	if listings == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if history == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &Service{listings: listings, history: history}, nil
}

// Get returns one listing by its external id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return listing, nil
}

// List pages through listings in ascending id order.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	afterID, ok, err := pagination.ParseIDCursor(params.Cursor)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query := listPageParams{
		PlatformID: params.PlatformID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
	}
	if ok {
		query.AfterID = &afterID
	}
	rows, err := s.listings.ListPage(ctx, query)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	normalized := pagination.NormalizeLimit(params.Limit)
	result := ListResult{Listings: rows}
	if len(rows) > normalized {
		result.Listings = rows[:normalized]
		result.NextCursor = pagination.EncodeIDCursor(result.Listings[normalized-1].ID)
	}
	return result, nil
}

// PriceHistory returns price ledger rows newest first.
func (s *Service) PriceHistory(ctx context.Context, params HistoryParams) ([]models.PriceHistoryEntry, string, error) {
	query, normalized, err := s.historyQuery(params)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.history.ListPrice(ctx, query)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price history")
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.RecordedAt, ID: last.ID}), nil
	}
	return rows, "", nil
}

// InventoryHistory returns stock ledger rows newest first.
func (s *Service) InventoryHistory(ctx context.Context, params HistoryParams) ([]models.InventoryHistoryEntry, string, error) {
	query, normalized, err := s.historyQuery(params)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.history.ListInventory(ctx, query)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory history")
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.RecordedAt, ID: last.ID}), nil
	}
	return rows, "", nil
}

// CustomFieldHistory returns custom-field ledger rows newest first, optionally for one field.
func (s *Service) CustomFieldHistory(ctx context.Context, params HistoryParams) ([]models.CustomFieldHistoryEntry, string, error) {
	query, normalized, err := s.historyQuery(params)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.history.ListCustomFields(ctx, query)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list custom field history")
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.RecordedAt, ID: last.ID}), nil
	}
	return rows, "", nil
}

func (s *Service) historyQuery(params HistoryParams) (historyParams, int, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return historyParams{}, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return historyParams{
		ListingID: params.ListingID,
		FieldName: params.FieldName,
		Cursor:    cursor,
		Limit:     pagination.LimitWithBuffer(params.Limit),
	}, pagination.NormalizeLimit(params.Limit), nil
}
