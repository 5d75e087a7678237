package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airmesh/hub/hub"
	"github.com/airmesh/hub/logging"
	"github.com/airmesh/hub/store"
	"github.com/airmesh/hub/transport"
)

// Server owns the listening endpoint that upgrades worker HTTP requests to
// persistent duplex connections, and supervises the hub and its store.
type Server struct {
	cfg Config
	hub *hub.Hub
	db  *store.DB

	listener        net.Listener
	metricsListener net.Listener

	upgrader websocket.Upgrader
}

func New(ctx context.Context, cfg Config) (*Server, error) {
	// Resolve the worker listener
	addr, err := net.ResolveTCPAddr("tcp", cfg.RawListener)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen(addr.Network(), addr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %v", err)
	}

	var metricsListener net.Listener
	if cfg.MetricsPort != nil {
		metricsListener, err = net.Listen("tcp", fmt.Sprintf(":%d", *cfg.MetricsPort))
		if err != nil {
			return nil, fmt.Errorf("failed to listen for metrics: %v", err)
		}
	}

	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, err
		}
	}

	db, err := store.Open(cfg.DbDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &Server{
		cfg:             cfg,
		hub:             hub.New(db, hub.WithConfig(cfg.Hub)),
		db:              db,
		listener:        listener,
		metricsListener: metricsListener,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

func (s *Server) Close() error {
	return s.db.Close()
}

// Addr returns the address that the server is listening on for worker
// connections.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start runs the server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	serverGroup, ctx := errgroup.WithContext(ctx)

	logger := logging.FromContext(ctx)

	logger.Info("starting hub")
	serverGroup.Go(func() error {
		return s.hub.Run(ctx)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: time.Second * 5,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	serverGroup.Go(func() error {
		logger.Sugar().Infof("listening for worker connections on %s", s.listener.Addr())
		err := server.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	var metricsServer *http.Server
	if s.metricsListener != nil {
		metricsServer = &http.Server{Handler: promhttp.Handler(), ReadHeaderTimeout: time.Second * 5}
		serverGroup.Go(func() error {
			logger.Sugar().Infof("metrics listening on %s", s.metricsListener.Addr())
			err := metricsServer.Serve(s.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	// Wait for the server to shut down gracefully
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("failed to shutdown server: %s", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Sugar().Errorf("failed to shutdown metrics server: %s", err)
		}
	}
	if err := serverGroup.Wait(); err != nil {
		logger.Sugar().Errorf("error when waiting to shutdown servers: %s", err)
	}
	return nil
}

// handleUpgrade upgrades a worker's HTTP request to a duplex connection
// and serves it until it closes. Non-upgrade requests get an error reply
// from the upgrader.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("rejected non-upgrade request",
			zap.String("remote", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	s.serveConn(r.Context(), ws)
}

// serveConn reads frames from one worker connection for its lifetime.
// Each frame is handled as an independently scheduled unit of work, so
// handlers for one worker may execute concurrently.
func (s *Server) serveConn(ctx context.Context, ws *websocket.Conn) {
	logger := logging.FromContext(ctx).With(zap.Stringer("remote", ws.RemoteAddr()))
	ctx = logging.NewContext(ctx, logger)

	conn := transport.NewWebsocket(ws)
	defer func() {
		s.hub.HandleDisconnect(ctx, conn)
		conn.Close()
	}()

	logger.Debug("worker connected")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			logger.Debug("worker connection closed", zap.Error(err))
			return
		}
		go s.hub.HandleMessage(ctx, conn, raw)
	}
}
