package server_test

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/airmesh/hub/hub"
	"github.com/airmesh/hub/logging"
	"github.com/airmesh/hub/server"
	"github.com/airmesh/hub/store"
)

func writeFrame(t *testing.T, ws *websocket.Conn, msgType string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(hub.Envelope{Type: msgType, Data: payload}))
}

func readFrame(t *testing.T, ws *websocket.Conn, msgType string, out any) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var envelope hub.Envelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.Equal(t, msgType, envelope.Type)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestServerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), zaptest.NewLogger(t)))
	defer cancel()

	dir := t.TempDir()
	cfg := server.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DbDir = filepath.Join(dir, "db")
	cfg.RawListener = "localhost:0"
	cfg.Hub.SweepInterval = time.Hour // pull only

	// Seed the place inventory before the server takes over the store.
	db, err := store.Open(cfg.DbDir)
	require.NoError(t, err)
	require.NoError(t, db.PutPlace(ctx, store.Place{ID: "42", Name: "Park", Lat: 1, Lng: 2}))
	require.NoError(t, db.Close())

	srv, err := server.New(ctx, *cfg)
	require.NoError(t, err)

	var eg errgroup.Group
	eg.Go(func() error { return srv.Start(ctx) })

	// A request that is not a connection upgrade is turned away.
	resp, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, fmt.Sprintf("ws://%s/", srv.Addr()), nil)
	require.NoError(t, err)
	defer ws.Close()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(pub)

	writeFrame(t, ws, hub.MsgSignup, hub.SignupRequest{
		PublicKey:     encoded,
		SignedMessage: ed25519.Sign(priv, []byte(fmt.Sprintf("Signed message for %s, %s", "c1", encoded))),
		CallbackID:    "c1",
	})
	var signupReply hub.SignupReply
	readFrame(t, ws, hub.MsgSignup, &signupReply)
	require.Equal(t, "c1", signupReply.CallbackID)
	require.NotEmpty(t, signupReply.ValidatorID)

	writeFrame(t, ws, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c2"})
	var order hub.WorkOrder
	readFrame(t, ws, hub.MsgValidate, &order)
	require.Equal(t, "42", order.PlaceID)
	require.Equal(t, "Park", order.PlaceName)

	writeFrame(t, ws, hub.MsgValidate, hub.ValidateResult{
		ValidatorID:   signupReply.ValidatorID,
		SignedMessage: ed25519.Sign(priv, []byte(fmt.Sprintf("Replying to %s", order.CallbackID))),
		Aqi:           2,
		Pm25:          12.5,
		CallbackID:    order.CallbackID,
	})

	// Nothing left to dispatch: the place is taken.
	writeFrame(t, ws, hub.MsgRequestPlaces, hub.PlacesRequest{CallbackID: "c3"})
	var noPlaces hub.NoPlacesReply
	readFrame(t, ws, hub.MsgNoPlaces, &noPlaces)
	require.Equal(t, "c3", noPlaces.CallbackID)

	// The commit runs on its own goroutine; let it land before shutdown.
	time.Sleep(500 * time.Millisecond)

	require.NoError(t, ws.Close())
	cancel()
	require.NoError(t, eg.Wait())
	require.NoError(t, srv.Close())

	// The committed state survives the server.
	db, err = store.Open(cfg.DbDir)
	require.NoError(t, err)
	defer db.Close()
	m, err := db.GetMeasurement(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, store.StatusModerate, m.Status)
	worker, err := db.GetWorker(context.Background(), encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(100), worker.PendingPayout)
}
