// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package opentelemetry

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Shutdown flushes any remaining spans and stops the provider.
// This should be called when the top level application is shutting down
func Shutdown(ctx context.Context) {
	if TracerProvider == nil {
		return
	}
	if err := TracerProvider.ForceFlush(ctx); err != nil {
		log.Errorf("Error flushing traces; is the collector for traces running?; %v", err)
	}
	if err := TracerProvider.Shutdown(ctx); err != nil {
		log.Errorf("Error shutting down tracer provider: %v", err)
	}
	TracerProvider = nil
	Tracer = nil
}
