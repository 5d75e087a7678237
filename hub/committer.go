package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/airmesh/hub/logging"
	"github.com/airmesh/hub/signing"
	"github.com/airmesh/hub/store"
	"github.com/airmesh/hub/transport"
)

// handleResult correlates an inbound result with its dispatched work order
// and commits it. A result for an unknown or already consumed correlation
// ID is a no-op, not an error (duplicate delivery, expired dispatch).
func (h *Hub) handleResult(ctx context.Context, conn transport.Conn, result ValidateResult) {
	logger := logging.FromContext(ctx)

	call, ok := h.calls.take(result.CallbackID)
	if !ok {
		logger.Debug("ignoring result with no pending call", zap.String("callback_id", result.CallbackID))
		droppedResultsMetric.WithLabelValues("orphaned").Inc()
		return
	}
	if err := h.commitResult(ctx, call, result); err != nil {
		logger.Error("failed to commit result",
			zap.String("place_id", call.PlaceID),
			zap.String("worker_id", call.Session.WorkerID),
			zap.Error(err),
		)
	}
}

// commitResult verifies the result's signature against the session key the
// work order was dispatched to (never the identity claimed in the payload)
// and then atomically releases the place's claim, records the measurement
// and accrues the worker's reward. A failed transaction leaves the claim
// in place so the work order is retried after the claim expires.
func (h *Hub) commitResult(ctx context.Context, call *pendingCall, result ValidateResult) error {
	logger := logging.FromContext(ctx)

	challenge := signing.ReplyChallenge(call.ID)
	if !signing.Verify(challenge, call.Session.Key, result.SignedMessage) {
		// Dropped without a reply.
		logger.Debug("dropping result with invalid signature",
			zap.String("place_id", call.PlaceID),
			zap.String("worker_id", call.Session.WorkerID),
		)
		droppedResultsMetric.WithLabelValues("bad_signature").Inc()
		return nil
	}

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit for place %s: %w", call.PlaceID, err)
	}

	status := store.StatusFor(result.Aqi)
	err = h.applyResult(tx, call, result, status)
	switch {
	case errors.Is(err, store.ErrAlreadyMeasured):
		// First writer won; reject this redundant submission.
		tx.Rollback()
		logger.Debug("rejecting redundant result",
			zap.String("place_id", call.PlaceID),
			zap.String("worker_id", call.Session.WorkerID),
		)
		droppedResultsMetric.WithLabelValues("already_measured").Inc()
		return nil
	case err != nil:
		tx.Rollback()
		return fmt.Errorf("applying result for place %s: %w", call.PlaceID, err)
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return fmt.Errorf("committing result for place %s: %w", call.PlaceID, err)
	}

	commitsMetric.Inc()
	logger.Info("measurement committed",
		zap.String("place_id", call.PlaceID),
		zap.String("worker_id", call.Session.WorkerID),
		zap.String("path", call.Source),
		zap.Int32("aqi", result.Aqi),
		zap.String("status", status),
	)
	return nil
}

func (h *Hub) applyResult(tx store.Tx, call *pendingCall, result ValidateResult, status string) error {
	if err := tx.UpdatePlace(call.PlaceID, call.Session.PublicKey); err != nil {
		return err
	}
	if err := tx.CreateMeasurement(store.Measurement{
		PlaceID:     call.PlaceID,
		Aqi:         result.Aqi,
		Pm25:        result.Pm25,
		Pm10:        result.Pm10,
		Co:          result.Co,
		No:          result.No,
		So2:         result.So2,
		Nh3:         result.Nh3,
		No2:         result.No2,
		O3:          result.O3,
		Status:      status,
		SubmittedBy: call.Session.WorkerID,
		CreatedAt:   time.Now().Unix(),
	}); err != nil {
		return err
	}
	return tx.IncrementPayout(call.Session.PublicKey, h.cfg.UnitReward)
}
