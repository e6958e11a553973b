package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/observability"
	"solana-sniper/internal/position"
	"solana-sniper/internal/storage"
)

// statusServer serves /health, /metrics and /status.
type statusServer struct {
	started   time.Time
	quoteMint string
	buying    bool
	tracker   *position.Tracker
	pools     storage.PoolStore
	logger    *zap.Logger
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string           `json:"status"`
	Uptime        string           `json:"uptime"`
	Started       time.Time        `json:"started"`
	QuoteMint     string           `json:"quote_mint"`
	BuyEnabled    bool             `json:"buy_enabled"`
	PoolsSeen     int              `json:"pools_seen"`
	OpenPositions []PositionStatus `json:"open_positions"`
}

// PositionStatus is one open position in a StatusResponse.
type PositionStatus struct {
	Mint      string    `json:"mint"`
	PoolID    string    `json:"pool_id"`
	Symbol    string    `json:"symbol,omitempty"`
	OpenedAt  time.Time `json:"opened_at"`
	CostBasis string    `json:"cost_basis"`
}

func (s *statusServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// Run serves on addr until ctx is done.
func (s *statusServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// handleStatus returns engine status as JSON.
func (s *statusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Started:       s.started,
		QuoteMint:     s.quoteMint,
		BuyEnabled:    s.buying,
		OpenPositions: []PositionStatus{},
	}

	count, err := s.pools.Count(r.Context())
	if err != nil {
		s.logger.Warn("count pools", zap.Error(err))
	}
	resp.PoolsSeen = count

	for _, p := range s.tracker.Open() {
		resp.OpenPositions = append(resp.OpenPositions, PositionStatus{
			Mint:      p.Mint,
			PoolID:    p.PoolID,
			Symbol:    p.Symbol,
			OpenedAt:  p.OpenedAt,
			CostBasis: p.CostBasis.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
