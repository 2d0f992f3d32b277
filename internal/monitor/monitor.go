// Package monitor periodically reports the rebuild controller status to the
// log and, optionally, to a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bikesim/drivetrain/internal/rebuild"
)

// StatusSource is satisfied by *rebuild.Controller.
type StatusSource interface {
	Status() rebuild.Status
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Controller StatusSource
	Logger     *slog.Logger
	Interval   time.Duration
	// StatusFile is rewritten on every report when set
	StatusFile string
}

// Report is the JSON form of one status sample.
type Report struct {
	Time        time.Time `json:"time"`
	State       string    `json:"state"`
	Tick        uint64    `json:"tick"`
	ChainID     uint64    `json:"chainId"`
	Links       int       `json:"links"`
	Constraints int       `json:"constraints"`
	Perimeter   float64   `json:"perimeter"`
	Pending     int       `json:"pending"`
	Rebuilds    int64     `json:"rebuilds"`
	Failures    int64     `json:"failures"`
	Coalesced   int64     `json:"coalesced"`
	LastOutcome string    `json:"lastOutcome,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	logger    *slog.Logger
	now       func() time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		logger: logger.With("component", "monitor"),
		now:    time.Now,
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot samples the controller once.
func (s *Service) Snapshot() Report {
	st := s.deps.Controller.Status()
	return Report{
		Time:        s.now(),
		State:       st.State.String(),
		Tick:        st.Tick,
		ChainID:     st.ChainID,
		Links:       st.Links,
		Constraints: st.Constraints,
		Perimeter:   st.Perimeter,
		Pending:     st.Pending,
		Rebuilds:    st.Rebuilds,
		Failures:    st.Failures,
		Coalesced:   st.Coalesced,
		LastOutcome: string(st.LastOutcome),
		LastError:   st.LastError,
	}
}

// Report samples the controller, logs the sample and writes the status file.
func (s *Service) Report() (Report, error) {
	r := s.Snapshot()
	s.logger.Debug("Chain status",
		"tick", r.Tick,
		"chainId", r.ChainID,
		"links", r.Links,
		"pending", r.Pending,
		"rebuilds", r.Rebuilds,
		"failures", r.Failures,
	)

	if s.deps.StatusFile == "" {
		return r, nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return r, fmt.Errorf("failed to marshal status: %w", err)
	}
	tmp := s.deps.StatusFile + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return r, fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmp, s.deps.StatusFile); err != nil {
		return r, fmt.Errorf("failed to replace status file: %w", err)
	}
	return r, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Controller == nil {
		return fmt.Errorf("monitor: controller is required")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := s.Report(); err != nil {
					s.logger.Error("Error writing status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
