// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"

	"github.com/Fedict/lod-link/internal/export"
	"github.com/Fedict/lod-link/internal/identifier"
	"github.com/Fedict/lod-link/internal/query"
	"github.com/Fedict/lod-link/internal/triplestore"

	log "github.com/sirupsen/logrus"
)

var errNoExportFile = errors.New("no file name given")

// statusFor maps an error to the http status reported to the client.
// A store failure anywhere in err wins over client errors joined with it
func statusFor(err error) int {
	switch {
	case errors.Is(err, triplestore.ErrStoreOperationFailed):
		return http.StatusInternalServerError
	case errors.Is(err, identifier.ErrInvalidIdentifier),
		errors.Is(err, query.ErrInvalidBinding),
		errors.Is(err, errBadBody),
		errors.Is(err, errNoExportFile),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrInvalidFileName):
		return http.StatusBadRequest
	case errors.Is(err, errUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errNotAcceptable):
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status for err. Server side causes are
// logged but never sent to the client
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := log.Fields{"method": r.Method, "path": r.URL.Path, "status": status}
	if status >= http.StatusInternalServerError {
		log.WithFields(fields).Errorf("Request failed: %v", err)
		message := http.StatusText(status)
		if errors.Is(err, triplestore.ErrStoreOperationFailed) {
			message = triplestore.ErrStoreOperationFailed.Error()
		}
		http.Error(w, message, status)
		return
	}
	log.WithFields(fields).Infof("Rejected request: %v", err)
	http.Error(w, err.Error(), status)
}
