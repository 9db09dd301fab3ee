package marketplace

import (
	"context"
	"errors"

	"github.com/angelmondragon/resellsync/internal/repricing"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
)

const updatePlatformListingsMutation = `mutation UpdateMultiplePlatformListings($updates: [PlatformListingUpdateInput!]!) {
  updateMultiplePlatformListings(updates: $updates) {
    id
    resellerPayoutPrice
    status
  }
}`

type platformListingUpdate struct {
	PlatformListingID     string `json:"platformListingId"`
	ResellerPayoutPrice   int    `json:"resellerPayoutPrice"`
	ResellerPayoutPriceSx int    `json:"resellerPayoutPriceSx"`
}

// ApplyPayoutPrice sets newPayout on every platform listing reference in one
// mutation. GraphQL-level rejections come back as an unsuccessful result;
// transport and auth failures are returned as errors.
func (c *Client) ApplyPayoutPrice(ctx context.Context, refs []string, newPayout int) (repricing.ApplyResult, error) {
	if len(refs) == 0 {
		return repricing.ApplyResult{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one platform listing reference is required")
	}
	if newPayout <= 0 {
		return repricing.ApplyResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payout price must be positive")
	}

	updates := make([]platformListingUpdate, 0, len(refs))
	for _, ref := range refs {
		updates = append(updates, platformListingUpdate{
			PlatformListingID:     ref,
			ResellerPayoutPrice:   newPayout,
			ResellerPayoutPriceSx: newPayout,
		})
	}

	var out struct {
		Updated []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"updateMultiplePlatformListings"`
	}
	err := c.execute(ctx, graphqlRequest{
		OperationName: "UpdateMultiplePlatformListings",
		Query:         updatePlatformListingsMutation,
		Variables:     map[string]any{"updates": updates},
	}, &out)

	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		results := make([]repricing.ListingResult, 0, len(refs))
		for _, ref := range refs {
			results = append(results, repricing.ListingResult{Ref: ref, Error: gqlErr.Error()})
		}
		return repricing.ApplyResult{Results: results}, nil
	}
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			c.session.Invalidate()
		}
		return repricing.ApplyResult{}, err
	}

	updated := make(map[string]struct{}, len(out.Updated))
	for _, u := range out.Updated {
		updated[u.ID] = struct{}{}
	}
	result := repricing.ApplyResult{Results: make([]repricing.ListingResult, 0, len(refs))}
	for _, ref := range refs {
		_, ok := updated[ref]
		lr := repricing.ListingResult{Ref: ref, Success: ok}
		if ok {
			result.UpdatedCount++
		} else {
			lr.Error = "not returned by update"
		}
		result.Results = append(result.Results, lr)
	}
	result.Success = result.UpdatedCount >= len(refs)

	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"refs":          len(refs),
		"updated_count": result.UpdatedCount,
		"new_payout":    newPayout,
	}), "marketplace payout update applied")
	return result, nil
}
