package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/navid4x/ghesta/internal/jalali"
)

// Server runs the scan on a daily cron schedule and exposes a small HTTP
// surface so an external scheduler or operator can trigger it on demand.
type Server struct {
	cfg     Config
	scanner *Scanner
	logger  *logrus.Logger
}

func NewServer(cfg Config, scanner *Scanner, logger *logrus.Logger) *Server {
	return &Server{cfg: cfg, scanner: scanner, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.CronSpec, func() {
		result, err := s.scanner.Run(ctx, jalali.Today())
		if err != nil {
			s.logger.WithError(err).Error("scheduled reminder scan failed")
			return
		}
		s.logger.WithField("delivered", result.Delivered).Info("scheduled reminder scan done")
	}); err != nil {
		return fmt.Errorf("register cron schedule %q: %w", s.cfg.CronSpec, err)
	}
	c.Start()
	defer c.Stop()

	r := mux.NewRouter()
	r.HandleFunc("/run", s.handleRun).Methods("POST")
	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	server := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.ListenAddr).Info("notify server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shut down notify server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.scanner.Run(r.Context(), jalali.Today())
	if err != nil {
		http.Error(w, fmt.Sprintf("scan failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
