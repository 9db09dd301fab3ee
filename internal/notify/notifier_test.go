package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resellsync/pkg/enums"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

func sampleAlert() Alert {
	return Alert{
		Kind:        enums.ErrorKindStopLoss,
		ListingID:   42,
		ProductName: "Dunk Low",
		SKU:         "DD1391",
		Size:        "9",
		Message:     "stop loss reached",
		Fields:      map[string]any{"new_payout": 950, "stop_loss": 1000},
		OccurredAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(srv.URL, srv.Client())
	require.NoError(t, err)
	require.NoError(t, n.SendAlert(context.Background(), sampleAlert()))
	require.Equal(t, int64(42), got.ListingID)
	require.Equal(t, enums.ErrorKindStopLoss, got.Kind)
}

func TestWebhookNotifierReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(srv.URL, nil)
	require.NoError(t, err)
	err = n.SendAlert(context.Background(), sampleAlert())
	require.ErrorContains(t, err, "502")

	_, err = NewWebhookNotifier(" ", nil)
	require.Error(t, err)
}

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) SendAlert(_ context.Context, alert Alert) error {
	r.alerts = append(r.alerts, alert)
	return r.err
}

func TestMultiDeliversToEveryChannel(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("down")}
	ok := &recordingNotifier{}
	multi := Multi{failing, nil, ok, NewLogNotifier(logger.Nop())}

	err := multi.SendAlert(context.Background(), sampleAlert())
	require.ErrorContains(t, err, "down")
	require.Len(t, failing.alerts, 1)
	require.Len(t, ok.alerts, 1)
}

type fakeResult struct{ err error }

func (f fakeResult) Get(context.Context) (string, error) { return "id-1", f.err }

type fakePublisher struct {
	msgs []*gcppubsub.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakeResult{err: f.err}
}

func TestPubSubNotifierPublishesAttributes(t *testing.T) {
	pub := &fakePublisher{}
	n := &PubSubNotifier{publisher: pub}
	require.NoError(t, n.SendAlert(context.Background(), sampleAlert()))
	require.Len(t, pub.msgs, 1)
	require.Equal(t, "stop_loss", pub.msgs[0].Attributes["error_kind"])
	require.Equal(t, "42", pub.msgs[0].Attributes["listing_id"])

	pub.err = errors.New("quota")
	require.Error(t, n.SendAlert(context.Background(), sampleAlert()))

	_, err := NewPubSubNotifier(nil)
	require.Error(t, err)
}
