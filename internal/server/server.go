// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/Fedict/lod-link/internal/config"
	"github.com/Fedict/lod-link/internal/identifier"
	"github.com/Fedict/lod-link/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/knakk/rdf"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Store is the part of the triplestore gateway the api needs
type Store interface {
	FetchBySubject(ctx context.Context, subject, graph *rdf.IRI) (*common.Model, error)
	Search(ctx context.Context, text string) (*common.Model, error)
	FilterByPredicate(ctx context.Context, pred rdf.IRI, val rdf.Term) (*common.Model, error)
	Add(ctx context.Context, model *common.Model, graph *rdf.IRI) error
	Delete(ctx context.Context, subject, graph *rdf.IRI) error
	Reindex(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Exporter runs the rdf export task
type Exporter interface {
	ExportAll(ctx context.Context, files []string, graph *rdf.IRI) error
}

// Server exposes the link api over http
type Server struct {
	conf     config.ServerConfig
	store    Store
	exporter Exporter
	ids      identifier.Factory
	codec    *common.JsonldCodec
	health   *HealthChecker
}

func NewServer(conf config.ServerConfig, store Store, exporter Exporter, codec *common.JsonldCodec) *Server {
	if conf.Username == "" || conf.Password == "" {
		log.Warn("No credentials configured; every write request will be refused")
	}
	return &Server{
		conf:     conf,
		store:    store,
		exporter: exporter,
		ids:      identifier.NewFactory(conf.LinkBase, conf.GraphBase),
		codec:    codec,
		health:   NewHealthChecker(store, conf.HealthInterval),
	}
}

// Handler returns the routes of the api wrapped for tracing
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/link", s.endpoint("/link", s.getLink, false))
	r.Method(http.MethodPut, "/link", s.endpoint("/link", s.putLink, true))
	r.Method(http.MethodDelete, "/link", s.endpoint("/link", s.deleteLink, true))
	r.Method(http.MethodGet, "/link/_search", s.endpoint("/link/_search", s.search, false))
	r.Method(http.MethodGet, "/link/_filter", s.endpoint("/link/_filter", s.filter, false))
	r.Method(http.MethodPost, "/link/_reindex", s.endpoint("/link/_reindex", s.reindex, true))
	r.Method(http.MethodPost, "/tasks/rdf-export", s.endpoint("/tasks/rdf-export", s.export, true))

	r.Method(http.MethodGet, "/healthcheck", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return otelhttp.NewHandler(r, "lod-link")
}

func (s *Server) endpoint(route string, h http.HandlerFunc, protected bool) http.Handler {
	var handler http.Handler = h
	if protected {
		handler = s.requireAuth(handler)
	}
	return metrics.CountRequests(route, handler)
}

// ListenAndServe serves the api and probes the store until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.health.Run(ctx)

	srv := &http.Server{
		Addr:              s.conf.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", s.conf.Listen)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
