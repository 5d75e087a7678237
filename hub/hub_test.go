package hub_test

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/airmesh/hub/hub"
	"github.com/airmesh/hub/logging"
	"github.com/airmesh/hub/signing"
	"github.com/airmesh/hub/store"
	"github.com/airmesh/hub/transport"
)

type testWorker struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	encoded string
	conn    *transport.MemoryConn
}

func newTestWorker(t *testing.T) *testWorker {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &testWorker{
		priv:    priv,
		pub:     pub,
		encoded: base64.StdEncoding.EncodeToString(pub),
		conn:    transport.NewMemory(16),
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logging.NewContext(context.Background(), zaptest.NewLogger(t))
}

func marshalFrame(t *testing.T, msgType string, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(hub.Envelope{Type: msgType, Data: payload})
	require.NoError(t, err)
	return frame
}

// receive reads the next frame from the worker's connection, requiring the
// given message type, and unmarshals its payload into out.
func (w *testWorker) receive(t *testing.T, msgType string, out any) {
	t.Helper()
	select {
	case raw := <-w.conn.Receive():
		var envelope hub.Envelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		require.Equal(t, msgType, envelope.Type)
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q message", msgType)
	}
}

func (w *testWorker) signup(t *testing.T, ctx context.Context, h *hub.Hub, callbackID string) hub.SignupReply {
	t.Helper()
	challenge := signing.SignupChallenge(callbackID, w.encoded)
	h.HandleMessage(ctx, w.conn, marshalFrame(t, hub.MsgSignup, hub.SignupRequest{
		PublicKey:     w.encoded,
		SignedMessage: ed25519.Sign(w.priv, []byte(challenge)),
		CallbackID:    callbackID,
	}))
	var reply hub.SignupReply
	w.receive(t, hub.MsgSignup, &reply)
	require.Equal(t, callbackID, reply.CallbackID)
	return reply
}

func (w *testWorker) submitResult(t *testing.T, ctx context.Context, h *hub.Hub, workerID string, order hub.WorkOrder, aqi int32) {
	t.Helper()
	challenge := signing.ReplyChallenge(order.CallbackID)
	h.HandleMessage(ctx, w.conn, marshalFrame(t, hub.MsgValidate, hub.ValidateResult{
		ValidatorID:   workerID,
		SignedMessage: ed25519.Sign(w.priv, []byte(challenge)),
		Aqi:           aqi,
		Pm25:          12.5,
		Pm10:          20,
		Co:            0.4,
		No:            0.01,
		So2:           0.05,
		Nh3:           0.02,
		No2:           0.03,
		O3:            0.06,
		CallbackID:    order.CallbackID,
	}))
}

func TestPullDispatchRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "42", Name: "Park", Lat: 1, Lng: 2}))

	h := hub.New(db)
	worker := newTestWorker(t)

	reply := worker.signup(t, ctx, h, "c1")
	require.NotEmpty(t, reply.ValidatorID)

	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c2"}))
	var order hub.WorkOrder
	worker.receive(t, hub.MsgValidate, &order)
	require.Equal(t, "42", order.PlaceID)
	require.Equal(t, float64(1), order.Lat)
	require.Equal(t, float64(2), order.Lng)
	require.Equal(t, "Park", order.PlaceName)
	require.NotEmpty(t, order.CallbackID)

	// The place is claimed from the moment of dispatch.
	place, err := db.GetPlace(ctx, "42")
	require.NoError(t, err)
	require.True(t, place.Claimed)

	// A second request finds nothing to dispatch.
	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c4"}))
	var noPlaces hub.NoPlacesReply
	worker.receive(t, hub.MsgNoPlaces, &noPlaces)
	require.Equal(t, "c4", noPlaces.CallbackID)

	worker.submitResult(t, ctx, h, reply.ValidatorID, order, 2)

	place, err = db.GetPlace(ctx, "42")
	require.NoError(t, err)
	require.False(t, place.Claimed)
	require.True(t, place.HasMeasurement)
	require.Equal(t, worker.encoded, place.ValidatedBy)

	m, err := db.GetMeasurement(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, store.StatusModerate, m.Status)
	require.Equal(t, reply.ValidatorID, m.SubmittedBy)
	require.Equal(t, int32(2), m.Aqi)

	registered, err := db.GetWorker(ctx, worker.encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(100), registered.PendingPayout)

	// A duplicate of the same result is an orphaned no-op.
	worker.submitResult(t, ctx, h, reply.ValidatorID, order, 2)
	registered, err = db.GetWorker(ctx, worker.encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(100), registered.PendingPayout)
}

func TestSignupRequiresValidSignature(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	h := hub.New(db)
	worker := newTestWorker(t)

	// Signature over a different correlation ID must not register.
	challenge := signing.SignupChallenge("other", worker.encoded)
	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgSignup, hub.SignupRequest{
		PublicKey:     worker.encoded,
		SignedMessage: ed25519.Sign(worker.priv, []byte(challenge)),
		CallbackID:    "c1",
	}))
	require.Zero(t, len(worker.conn.Receive()))

	// The unregistered connection is politely rejected on a work request.
	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c2"}))
	var errReply hub.ErrorReply
	worker.receive(t, hub.MsgError, &errReply)
	require.Equal(t, "c2", errReply.CallbackID)
	require.NotEmpty(t, errReply.Message)
}

func TestResultWithInvalidSignatureDropped(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "42", Name: "Park"}))

	h := hub.New(db)
	worker := newTestWorker(t)
	reply := worker.signup(t, ctx, h, "c1")

	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c2"}))
	var order hub.WorkOrder
	worker.receive(t, hub.MsgValidate, &order)

	// Signed by a key that is not the session's.
	_, wrongKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgValidate, hub.ValidateResult{
		ValidatorID:   reply.ValidatorID,
		SignedMessage: ed25519.Sign(wrongKey, []byte(signing.ReplyChallenge(order.CallbackID))),
		Aqi:           1,
		CallbackID:    order.CallbackID,
	}))

	// Silent drop: no reply, no measurement, no payout.
	require.Zero(t, len(worker.conn.Receive()))
	_, err = db.GetMeasurement(ctx, "42")
	require.ErrorIs(t, err, store.ErrNotFound)
	registered, err := db.GetWorker(ctx, worker.encoded)
	require.NoError(t, err)
	require.Zero(t, registered.PendingPayout)
}

func TestPushDispatch(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "42", Name: "Park", Lat: 1, Lng: 2}))

	cfg := hub.DefaultConfig()
	cfg.SweepInterval = 10 * time.Millisecond
	h := hub.New(db, hub.WithConfig(cfg))

	var eg errgroup.Group
	eg.Go(func() error { return h.Run(ctx) })

	worker := newTestWorker(t)
	reply := worker.signup(t, ctx, h, "c1")

	// The periodic sweep dispatches the eligible place without a request.
	var order hub.WorkOrder
	worker.receive(t, hub.MsgValidate, &order)
	require.Equal(t, "42", order.PlaceID)

	// The sweep claimed the place, so it is not dispatched twice.
	place, err := db.GetPlace(ctx, "42")
	require.NoError(t, err)
	require.True(t, place.Claimed)

	worker.submitResult(t, ctx, h, reply.ValidatorID, order, 5)
	m, err := db.GetMeasurement(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, store.StatusSevere, m.Status)

	cancel()
	require.NoError(t, eg.Wait())
}

func TestDisconnectRemovesSessionOnly(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "42", Name: "Park"}))

	cfg := hub.DefaultConfig()
	cfg.SweepInterval = 10 * time.Millisecond
	h := hub.New(db, hub.WithConfig(cfg))

	var eg errgroup.Group
	eg.Go(func() error { return h.Run(ctx) })

	worker := newTestWorker(t)
	worker.signup(t, ctx, h, "c1")
	var order hub.WorkOrder
	worker.receive(t, hub.MsgValidate, &order)

	h.HandleDisconnect(ctx, worker.conn)

	// The pending dispatch survives the disconnect; the claim stays until
	// the expiry sweep takes it.
	place, err := db.GetPlace(ctx, "42")
	require.NoError(t, err)
	require.True(t, place.Claimed)

	// A disconnected worker gets no further sweep dispatches.
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "43", Name: "Plaza"}))
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, len(worker.conn.Receive()))

	cancel()
	require.NoError(t, eg.Wait())
}

func TestExpirySweepReleasesClaims(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "42", Name: "Park"}))

	cfg := hub.DefaultConfig()
	cfg.SweepInterval = time.Hour // pull only
	cfg.ExpiryInterval = 10 * time.Millisecond
	cfg.CallbackTTL = 20 * time.Millisecond
	h := hub.New(db, hub.WithConfig(cfg))

	var eg errgroup.Group
	eg.Go(func() error { return h.Run(ctx) })

	worker := newTestWorker(t)
	reply := worker.signup(t, ctx, h, "c1")
	h.HandleMessage(ctx, worker.conn, marshalFrame(t, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c2"}))
	var order hub.WorkOrder
	worker.receive(t, hub.MsgValidate, &order)

	// The worker never replies; the sweep must release the claim.
	require.Eventually(t, func() bool {
		place, err := db.GetPlace(ctx, "42")
		return err == nil && !place.Claimed
	}, 5*time.Second, 10*time.Millisecond)

	// A result arriving after expiry is orphaned and changes nothing.
	worker.submitResult(t, ctx, h, reply.ValidatorID, order, 1)
	_, err = db.GetMeasurement(ctx, "42")
	require.ErrorIs(t, err, store.ErrNotFound)

	cancel()
	require.NoError(t, eg.Wait())
}
