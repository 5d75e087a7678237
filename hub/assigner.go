package hub

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airmesh/hub/logging"
	"github.com/airmesh/hub/store"
	"github.com/airmesh/hub/transport"
)

// handlePlacesRequest serves the pull path: an authenticated worker asks
// for work and receives up to PullBatchSize work orders, each claimed
// before dispatch. Without a session the request is rejected with an error
// carrying the caller's correlation ID.
func (h *Hub) handlePlacesRequest(ctx context.Context, conn transport.Conn, req PlacesRequest) {
	logger := logging.FromContext(ctx)

	session := h.sessions.byConn(conn)
	if session == nil {
		h.send(ctx, conn, MsgError, ErrorReply{
			Message:    "validator not found, sign up first",
			CallbackID: req.CallbackID,
		})
		return
	}

	places, err := h.store.FindEligible(ctx, h.cfg.PullBatchSize)
	if err != nil {
		logger.Error("failed to query eligible places", zap.Error(err))
		h.send(ctx, conn, MsgError, ErrorReply{
			Message:    "internal error",
			CallbackID: req.CallbackID,
		})
		return
	}

	dispatched := 0
	for _, place := range places {
		claimed, err := h.store.ClaimIfEligible(ctx, place.ID, time.Now().Add(h.cfg.ClaimTTL))
		if err != nil {
			logger.Warn("failed to claim place", zap.String("place_id", place.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// Lost the race to a concurrent dispatch.
			continue
		}
		h.dispatchPlace(ctx, place, session, sourcePull)
		dispatched++
	}

	if dispatched == 0 {
		h.send(ctx, conn, MsgNoPlaces, NoPlacesReply{CallbackID: req.CallbackID})
		return
	}
	logger.Debug("dispatched places on request",
		zap.Int("count", dispatched),
		zap.String("worker_id", session.WorkerID),
	)
}

// sweepDispatch serves the push path: every eligible place is claimed once
// and dispatched to up to FanOut registered workers. Fan-out above 1 is
// intentional redundancy against worker dropout; the commit path accepts
// the first result and rejects the rest.
func (h *Hub) sweepDispatch(ctx context.Context) {
	logger := logging.FromContext(ctx)

	sessions := h.sessions.snapshot()
	if len(sessions) == 0 {
		return
	}

	places, err := h.store.FindEligible(ctx, 0)
	if err != nil {
		logger.Error("failed to query eligible places", zap.Error(err))
		return
	}

	fanOut := h.cfg.FanOut
	if fanOut < 1 {
		fanOut = 1
	}
	if fanOut > len(sessions) {
		fanOut = len(sessions)
	}

	for i, place := range places {
		claimed, err := h.store.ClaimIfEligible(ctx, place.ID, time.Now().Add(h.cfg.ClaimTTL))
		if err != nil {
			logger.Warn("failed to claim place", zap.String("place_id", place.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		for j := 0; j < fanOut; j++ {
			h.dispatchPlace(ctx, place, sessions[(i+j)%len(sessions)], sourcePush)
		}
	}
}

// dispatchPlace sends a work order for an already claimed place and
// registers the pending call its result will be correlated with.
func (h *Hub) dispatchPlace(ctx context.Context, place store.Place, session *Session, source string) {
	callbackID := uuid.NewString()
	h.calls.register(&pendingCall{
		ID:       callbackID,
		PlaceID:  place.ID,
		Source:   source,
		Session:  session,
		Deadline: time.Now().Add(h.cfg.CallbackTTL),
	})
	h.send(ctx, session.Conn, MsgValidate, WorkOrder{
		PlaceID:    place.ID,
		Lat:        place.Lat,
		Lng:        place.Lng,
		PlaceName:  place.Name,
		CallbackID: callbackID,
	})
	dispatchedMetric.WithLabelValues(source).Inc()
}

// expireStale consumes pending calls past their deadline and releases the
// claims they held, unless another in-flight dispatch still references the
// same place.
func (h *Hub) expireStale(ctx context.Context) {
	logger := logging.FromContext(ctx)

	expired := h.calls.expire(time.Now())
	for _, call := range expired {
		expiredCallsMetric.Inc()
		if h.calls.holdsPlace(call.PlaceID) {
			continue
		}
		if err := h.store.ReleaseClaim(ctx, call.PlaceID); err != nil {
			logger.Warn("failed to release expired claim",
				zap.String("place_id", call.PlaceID),
				zap.Error(err),
			)
			continue
		}
		logger.Debug("expired dispatched work order",
			zap.String("place_id", call.PlaceID),
			zap.String("worker_id", call.Session.WorkerID),
			zap.String("path", call.Source),
		)
	}
}
