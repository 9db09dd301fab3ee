package repricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	dbtypes "github.com/angelmondragon/resellsync/pkg/db/types"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/pagination"
)

func TestSetPayoutPriceRecordsManualMutationAndClearsThrottle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, 1, 10000, 11000, nil)
	require.NoError(t, h.throttle.RecordNotified(ctx, 1, enums.ErrorKindStopLoss, "halted"))

	mutation, err := h.manual.SetPayoutPrice(ctx, 1, 9500, "")
	require.NoError(t, err)
	require.True(t, mutation.Success)
	require.Equal(t, enums.PriceTriggerManual, mutation.TriggerType)
	require.Equal(t, "Manual price update", mutation.TriggerReason)
	require.Equal(t, 10830, mutation.NewProjectedPrice)
	require.Equal(t, 9500, *h.listing(t, 1).PayoutPrice)

	ok, err := h.throttle.ShouldNotify(ctx, 1, enums.ErrorKindStopLoss)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSetPayoutPriceUpstreamFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.applier.result = rejectAll
	h.seed(t, 1, 10000, 11000, nil)

	mutation, err := h.manual.SetPayoutPrice(ctx, 1, 9500, "match store price")
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	require.False(t, mutation.Success)
	require.Equal(t, 10000, *h.listing(t, 1).PayoutPrice)
	require.Len(t, h.mutations(t, 1), 1)
}

func TestSetPayoutPriceValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, 1, 10000, 11000, func(l *models.Listing) { l.ExternalListingRefs = nil })

	_, err := h.manual.SetPayoutPrice(ctx, 1, 0, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.manual.SetPayoutPrice(ctx, 404, 9000, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.manual.SetPayoutPrice(ctx, 1, 9000, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Empty(t, h.applier.calls)
}

func TestSetPayoutPriceMalformedRefIsAudited(t *testing.T) {
	h := newHarness(t, func(ref string) error {
		if ref == "bad" {
			return errors.New("not a global id")
		}
		return nil
	})
	ctx := context.Background()
	h.seed(t, 1, 10000, 11000, func(l *models.Listing) { l.ExternalListingRefs = dbtypes.ListingRefs{"bad"} })
	require.NoError(t, h.throttle.RecordNotified(ctx, 1, enums.ErrorKindAPIError, "listing locked"))

	mutation, err := h.manual.SetPayoutPrice(ctx, 1, 9500, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.False(t, mutation.Success)
	require.Empty(t, h.applier.calls)
	require.Equal(t, 10000, *h.listing(t, 1).PayoutPrice)

	rows := h.mutations(t, 1)
	require.Len(t, rows, 1)
	require.False(t, rows[0].Success)
	require.Equal(t, enums.PriceTriggerManual, rows[0].TriggerType)
	require.Equal(t, 9500, rows[0].NewPayoutPrice)
	require.Contains(t, *rows[0].ErrorMessage, `malformed listing reference "bad"`)

	ok, err := h.throttle.ShouldNotify(ctx, 1, enums.ErrorKindAPIError)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSettingsUpdatesClearThrottle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, 1, 10000, 11000, func(l *models.Listing) { l.StopLossPrice = intPtr(9700) })
	require.NoError(t, h.throttle.RecordNotified(ctx, 1, enums.ErrorKindStopLoss, "halted"))

	require.NoError(t, h.manual.SetStopLoss(ctx, 1, nil))
	listing := h.listing(t, 1)
	require.Nil(t, listing.StopLossPrice)
	ok, err := h.throttle.ShouldNotify(ctx, 1, enums.ErrorKindStopLoss)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, h.manual.SetAutoReprice(ctx, 1, false))
	require.False(t, h.listing(t, 1).AutoRepriceEnabled)

	require.True(t, pkgerrors.IsCode(h.manual.SetStopLoss(ctx, 1, intPtr(-1)), pkgerrors.CodeValidation))
	require.True(t, pkgerrors.IsCode(h.manual.SetAutoReprice(ctx, 404, true), pkgerrors.CodeNotFound))
}

func TestMutationsPaginatesNewestFirst(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, 1, 10000, 11000, nil)

	for _, payout := range []int{9900, 9800, 9700} {
		_, err := h.manual.SetPayoutPrice(ctx, 1, payout, "")
		require.NoError(t, err)
		h.clock = h.clock.Add(time.Minute)
	}

	page, next, err := h.manual.Mutations(ctx, 1, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, 9700, page[0].NewPayoutPrice)
	require.Equal(t, 9800, page[1].NewPayoutPrice)
	require.NotEmpty(t, next)

	page, next, err = h.manual.Mutations(ctx, 1, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, 9900, page[0].NewPayoutPrice)
	require.Empty(t, next)
	require.Equal(t, 10000, *page[0].OldPayoutPrice)
}
