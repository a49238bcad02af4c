// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/Fedict/lod-link/internal/common"

	"github.com/munnerz/goautoneg"
)

var (
	errUnsupportedMediaType = errors.New("unsupported media type")
	errNotAcceptable        = errors.New("no acceptable media type")
	errBadBody              = errors.New("malformed request body")
)

// media types offered for resources, the first one is the default
var offers = func() []string {
	types := make([]string, 0, len(common.ResourceFormats))
	for _, format := range common.ResourceFormats {
		types = append(types, common.FormatRegistry[format].MIMEType)
	}
	return types
}()

// negotiate picks the response format from the Accept header
func negotiate(accept string) (common.FormatInfo, error) {
	if accept == "" {
		return common.FormatRegistry[common.ResourceFormats[0]], nil
	}
	chosen := goautoneg.Negotiate(accept, offers)
	if chosen == "" {
		return common.FormatInfo{}, fmt.Errorf("%w: %s", errNotAcceptable, accept)
	}
	info, _ := common.FormatForMediaType(chosen)
	return info, nil
}

// requestFormat finds the format of a request body from its Content-Type
func requestFormat(contentType string) (common.FormatInfo, error) {
	info, ok := common.FormatForMediaType(contentType)
	if !ok || !slices.Contains(common.ResourceFormats, info.Name) {
		return common.FormatInfo{}, fmt.Errorf("%w: %q", errUnsupportedMediaType, contentType)
	}
	return info, nil
}

// readModel decodes the request body
func (s *Server) readModel(r *http.Request) (*common.Model, error) {
	info, err := requestFormat(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	var model *common.Model
	if info.Name == common.FormatJSONLD {
		model, err = s.codec.Decode(r.Body)
	} else {
		model, err = common.DecodeTriples(r.Body, info.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}
	return model, nil
}

// writeModel serializes the model in the negotiated format. The body
// is encoded completely before anything is written so failures still
// produce a clean error response
func (s *Server) writeModel(w http.ResponseWriter, r *http.Request, model *common.Model) {
	info, err := negotiate(r.Header.Get("Accept"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body bytes.Buffer
	if info.Name == common.FormatJSONLD {
		err = s.codec.Encode(&body, model)
	} else {
		err = common.EncodeTriples(&body, model, info.Name)
	}
	if err != nil {
		s.writeError(w, r, fmt.Errorf("serializing %s: %w", info.Name, err))
		return
	}

	w.Header().Set("Content-Type", info.MIMEType)
	w.Header().Add("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes())
}
