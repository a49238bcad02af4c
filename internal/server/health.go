// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Fedict/lod-link/internal/metrics"

	log "github.com/sirupsen/logrus"
)

const (
	statusUp      = "up"
	statusDown    = "down"
	statusUnknown = "unknown"
)

const defaultHealthInterval = 30 * time.Second

// Pinger checks that the triplestore answers
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// HealthChecker probes the store in the background and remembers the
// outcome of the last probe, so health requests never reach the store
type HealthChecker struct {
	store    Pinger
	interval time.Duration

	mu   sync.RWMutex
	last HealthStatus
}

func NewHealthChecker(store Pinger, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthChecker{
		store:    store,
		interval: interval,
		last: HealthStatus{
			Status:     statusUnknown,
			Timestamp:  time.Now().UTC(),
			Components: map[string]string{"triplestore": "not checked yet"},
		},
	}
}

// Check probes the store once and records the result
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	status := HealthStatus{
		Status:     statusUp,
		Timestamp:  time.Now().UTC(),
		Components: map[string]string{"triplestore": "ok"},
	}
	if err := h.store.Ping(ctx); err != nil {
		log.Warnf("Triplestore health probe failed: %v", err)
		status.Status = statusDown
		status.Components["triplestore"] = err.Error()
		metrics.StoreUp.Set(0)
	} else {
		metrics.StoreUp.Set(1)
	}

	h.mu.Lock()
	h.last = status
	h.mu.Unlock()
	return status
}

// Status returns the result of the last probe
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Run probes the store right away and then every interval until ctx is done
func (h *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		h.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := h.Status()
	w.Header().Set("Content-Type", "application/json")
	if status.Status != statusUp {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
