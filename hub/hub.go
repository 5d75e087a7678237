package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/airmesh/hub/logging"
	"github.com/airmesh/hub/signing"
	"github.com/airmesh/hub/store"
	"github.com/airmesh/hub/transport"
)

//go:generate mockgen -package mocks -destination mocks/store.go . Store

// Store is the hub's view of the persistent place inventory, measurement
// records and payout ledger.
type Store interface {
	GetOrCreateWorker(ctx context.Context, publicKey string) (store.Worker, error)
	FindEligible(ctx context.Context, limit int) ([]store.Place, error)
	ClaimIfEligible(ctx context.Context, id string, deadline time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id string) error
	Begin(ctx context.Context) (store.Tx, error)
}

// Hub coordinates the pool of measurement workers: it authenticates
// signups, assigns eligible places over the pull and push paths,
// correlates dispatched work orders with signed results and commits
// verified measurements.
type Hub struct {
	cfg      Config
	store    Store
	sessions *registry
	calls    *correlator
}

type newHubOptionFunc func(*newHubOptions)

type newHubOptions struct {
	cfg Config
}

func WithConfig(cfg Config) newHubOptionFunc {
	return func(opts *newHubOptions) {
		opts.cfg = cfg
	}
}

func New(db Store, opts ...newHubOptionFunc) *Hub {
	options := newHubOptions{
		cfg: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Hub{
		cfg:      options.cfg,
		store:    db,
		sessions: newRegistry(),
		calls:    newCorrelator(),
	}
}

// Run drives the hub's background work: the periodic dispatch sweep over
// registered workers and the expiry sweep over stale dispatches. It
// returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("hub")
	ctx = logging.NewContext(ctx, logger)
	logger.Info("hub started", zap.Object("config", h.cfg))

	sweep := time.NewTicker(h.cfg.SweepInterval)
	defer sweep.Stop()
	expiry := time.NewTicker(h.cfg.ExpiryInterval)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sweep.C:
			h.sweepDispatch(ctx)
		case <-expiry.C:
			h.expireStale(ctx)
		}
	}
}

// HandleMessage processes one inbound frame from a worker connection.
// The server schedules each call independently; handlers for the same
// connection may run concurrently.
func (h *Hub) HandleMessage(ctx context.Context, conn transport.Conn, raw []byte) {
	logger := logging.FromContext(ctx)

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logger.Debug("dropping malformed frame", zap.Error(err))
		return
	}

	switch envelope.Type {
	case MsgSignup:
		var req SignupRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			logger.Debug("dropping malformed signup", zap.Error(err))
			return
		}
		h.handleSignup(ctx, conn, req)
	case MsgRequestPlaces:
		var req PlacesRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			logger.Debug("dropping malformed places request", zap.Error(err))
			return
		}
		h.handlePlacesRequest(ctx, conn, req)
	case MsgValidate:
		var result ValidateResult
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			logger.Debug("dropping malformed result", zap.Error(err))
			return
		}
		h.handleResult(ctx, conn, result)
	default:
		logger.Debug("dropping frame of unknown type", zap.String("type", envelope.Type))
	}
}

// HandleDisconnect removes the connection's session, if any. Outstanding
// claims and pending calls owned by the worker are left to the expiry
// sweep; a late result for a pending call of a dead session is still
// committable since the signature was bound at dispatch time.
func (h *Hub) HandleDisconnect(ctx context.Context, conn transport.Conn) {
	session, ok := h.sessions.removeByConn(conn)
	if !ok {
		return
	}
	sessionsMetric.Dec()
	logging.FromContext(ctx).Info("worker disconnected",
		zap.String("worker_id", session.WorkerID),
		zap.Int("sessions", h.sessions.size()),
	)
}

// handleSignup authenticates a worker's claimed identity and registers a
// session for its connection. An unverifiable signup is dropped without a
// reply.
func (h *Hub) handleSignup(ctx context.Context, conn transport.Conn, req SignupRequest) {
	logger := logging.FromContext(ctx)

	key, err := signing.ParsePublicKey(req.PublicKey)
	if err != nil {
		logger.Debug("dropping signup with unusable pubkey", zap.Error(err))
		return
	}
	challenge := signing.SignupChallenge(req.CallbackID, req.PublicKey)
	if !signing.Verify(challenge, key, req.SignedMessage) {
		logger.Debug("dropping signup with invalid signature", zap.String("pubkey", req.PublicKey))
		return
	}

	worker, err := h.store.GetOrCreateWorker(ctx, req.PublicKey)
	if err != nil {
		logger.Error("failed to register worker", zap.Error(err))
		return
	}

	h.sessions.add(&Session{
		WorkerID:  worker.ID,
		PublicKey: req.PublicKey,
		Key:       key,
		Conn:      conn,
	})
	sessionsMetric.Inc()
	logger.Info("worker signed up",
		zap.String("worker_id", worker.ID),
		zap.Int("sessions", h.sessions.size()),
	)

	h.send(ctx, conn, MsgSignup, SignupReply{
		ValidatorID: worker.ID,
		CallbackID:  req.CallbackID,
	})
}

// send marshals and sends a message on a worker connection. Sends are
// fire-and-forget; failures are logged and otherwise ignored, stale
// dispatches are reclaimed by the expiry sweep.
func (h *Hub) send(ctx context.Context, conn transport.Conn, msgType string, data any) {
	msg, err := marshalMessage(msgType, data)
	if err != nil {
		logging.FromContext(ctx).Error("failed to marshal message", zap.Error(err))
		return
	}
	if err := conn.Send(msg); err != nil {
		logging.FromContext(ctx).Warn("failed to send message",
			zap.String("type", msgType),
			zap.Error(err),
		)
	}
}
