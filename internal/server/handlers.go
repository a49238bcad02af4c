// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/Fedict/lod-link/internal/query"

	"github.com/knakk/rdf"
	log "github.com/sirupsen/logrus"
)

// filters resolves the s and g parameters; empty parameters stay nil
func (s *Server) filters(r *http.Request) (subject, graph *rdf.IRI, err error) {
	params := r.URL.Query()
	if raw := params.Get("s"); raw != "" {
		iri, err := s.ids.AsSubjectID(raw)
		if err != nil {
			return nil, nil, err
		}
		subject = &iri
	}
	if raw := params.Get("g"); raw != "" {
		iri, err := s.ids.AsGraphID(raw)
		if err != nil {
			return nil, nil, err
		}
		graph = &iri
	}
	return subject, graph, nil
}

// GET /link: the graph wins when both filters are given
func (s *Server) getLink(w http.ResponseWriter, r *http.Request) {
	subject, graph, err := s.filters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if graph != nil {
		subject = nil
	}
	if subject == nil && graph == nil {
		s.writeModel(w, r, common.NewModel())
		return
	}

	model, err := s.store.FetchBySubject(r.Context(), subject, graph)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeModel(w, r, model)
}

// PUT /link
func (s *Server) putLink(w http.ResponseWriter, r *http.Request) {
	_, graph, err := s.filters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	model, err := s.readModel(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Add(r.Context(), model, graph); err != nil {
		s.writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"statements": model.Len()}).Info("Links added")
	w.WriteHeader(http.StatusOK)
}

// DELETE /link: with both filters the subject and the graph are
// deleted separately
func (s *Server) deleteLink(w http.ResponseWriter, r *http.Request) {
	subject, graph, err := s.filters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if subject == nil && graph == nil {
		log.Info("Delete without subject or graph ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	if subject != nil {
		if err := s.store.Delete(r.Context(), subject, nil); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if graph != nil {
		if err := s.store.Delete(r.Context(), nil, graph); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// GET /link/_search
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		s.writeModel(w, r, common.NewModel())
		return
	}
	model, err := s.store.Search(r.Context(), s.ids.AsLiteral(text).String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeModel(w, r, model)
}

// GET /link/_filter
func (s *Server) filter(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("theme")
	if raw == "" {
		s.writeModel(w, r, common.NewModel())
		return
	}
	theme, err := s.ids.AsURI(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pred, err := s.ids.AsURI(query.DcatTheme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	model, err := s.store.FilterByPredicate(r.Context(), pred, theme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeModel(w, r, model)
}

// POST /link/_reindex
func (s *Server) reindex(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reindex(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// POST /tasks/rdf-export with one or more file parameters and an optional graph
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, errBadBody)
		return
	}
	files := r.Form["file"]
	if len(files) == 0 {
		s.writeError(w, r, errNoExportFile)
		return
	}
	var graph *rdf.IRI
	if raw := r.Form.Get("graph"); raw != "" {
		iri, err := s.ids.AsGraphID(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		graph = &iri
	}

	if err := s.exporter.ExportAll(r.Context(), files, graph); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
