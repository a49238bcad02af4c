// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/Fedict/lod-link/internal/config"
	"github.com/Fedict/lod-link/internal/custom_http_trace"
	"github.com/Fedict/lod-link/internal/metrics"
	"github.com/Fedict/lod-link/internal/opentelemetry"
	"github.com/Fedict/lod-link/internal/query"

	"github.com/knakk/rdf"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
)

const (
	contentTypeNTriples     = "application/n-triples"
	contentTypeNQuads       = "application/n-quads"
	contentTypeSparqlUpdate = "application/sparql-update"
	contentTypeSparqlJSON   = "application/sparql-results+json"
	contentTypeForm         = "application/x-www-form-urlencoded"
)

// The lucene connector of graphdb. When a client has none, text
// search still runs against the default index but reindexing is skipped
type LuceneIndex struct {
	IRI rdf.IRI
}

// GraphDbClient talks to a graphdb repository over the rdf4j rest protocol.
// Every operation is a single http exchange without retries
type GraphDbClient struct {
	// Holds the configuration for how to interact with the sparql endpoint
	SparqlConf config.SparqlConfig
	// url to the host specifying a repository; used for queries
	BaseRepositoryUrl string
	// url of the statements endpoint of the repository; used for
	// reading, writing and deleting statements and for sparql updates
	BaseStatementsUrl string
	// url to the host for the rest api base endpoint.
	// REST api methods are used for config and graphdb specific operations
	BaseRESTUrl string

	httpClient *http.Client
	// nil when the store has no text index to rebuild
	textIndex *LuceneIndex
	search    query.Template
}

// Create a new client struct to connect to the triplestore.
// A nil httpClient means the default store client is used
func NewGraphDbClient(conf config.SparqlConfig, httpClient *http.Client) (*GraphDbClient, error) {
	endpoint := strings.TrimSuffix(conf.Endpoint, "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid sparql endpoint %q: %w", conf.Endpoint, err)
	}
	if conf.Repository == "" {
		return nil, errors.New("no repository configured")
	}
	if httpClient == nil {
		httpClient = common.NewStoreClient()
	}

	searchIndex, err := rdf.NewIRI(query.DefaultTextIndex)
	if err != nil {
		return nil, err
	}
	var textIndex *LuceneIndex
	if conf.TextIndex != "" {
		searchIndex, err = rdf.NewIRI(conf.TextIndex)
		if err != nil {
			return nil, fmt.Errorf("invalid text index %q: %w", conf.TextIndex, err)
		}
		textIndex = &LuceneIndex{IRI: searchIndex}
	}

	repository := url.PathEscape(conf.Repository)
	return &GraphDbClient{
		SparqlConf:        conf,
		BaseRepositoryUrl: fmt.Sprintf("%s/repositories/%s", endpoint, repository),
		BaseStatementsUrl: fmt.Sprintf("%s/repositories/%s/statements", endpoint, repository),
		BaseRESTUrl:       fmt.Sprintf("%s/rest", endpoint),
		httpClient:        httpClient,
		textIndex:         textIndex,
		search:            query.SearchTemplate(searchIndex),
	}, nil
}

// TextIndex returns the configured text index or nil
func (graphClient *GraphDbClient) TextIndex() *LuceneIndex {
	return graphClient.textIndex
}

// FetchBySubject returns the statements about subject, the statements of
// graph, or the statements about subject within graph. Without either
// filter the model is empty and the store is not contacted
func (graphClient *GraphDbClient) FetchBySubject(ctx context.Context, subject, graph *rdf.IRI) (*common.Model, error) {
	pattern := query.StatementPattern{Subject: subject, Graph: graph}
	if pattern.IsEmpty() {
		return common.NewModel(), nil
	}

	req, err := graphClient.newRequest(ctx, http.MethodGet, graphClient.BaseStatementsUrl+"?"+pattern.Params().Encode(), nil)
	if err != nil {
		return nil, &OperationError{Op: "fetch", Err: err}
	}
	req.Header.Set("Accept", contentTypeNTriples)

	return graphClient.readModel("fetch", req, patternAttributes(pattern)...)
}

// RunTemplate evaluates a construct template with the bindings
func (graphClient *GraphDbClient) RunTemplate(ctx context.Context, tpl query.Template, bindings query.Bindings) (*common.Model, error) {
	form, err := tpl.Form(bindings)
	if err != nil {
		// bindings come from this service, so a template that cannot
		// be filled is a malformed query rather than bad user input
		return nil, &OperationError{Op: tpl.Name, Err: err}
	}
	log.Debugf("Running %s query: %s", tpl.Name, form.Get("query"))

	req, err := graphClient.newRequest(ctx, http.MethodPost, graphClient.BaseRepositoryUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &OperationError{Op: tpl.Name, Err: err}
	}
	req.Header.Set("Content-Type", contentTypeForm)
	req.Header.Set("Accept", contentTypeNTriples)

	return graphClient.readModel(tpl.Name, req, attribute.String("template", tpl.Name))
}

// Search returns the label of every subject whose indexed text matches
// the prefix query built from text. Empty text matches nothing
func (graphClient *GraphDbClient) Search(ctx context.Context, text string) (*common.Model, error) {
	if text == "" {
		return common.NewModel(), nil
	}
	token, err := rdf.NewLiteral(query.SearchToken(text))
	if err != nil {
		return nil, err
	}
	return graphClient.RunTemplate(ctx, graphClient.search, query.Bindings{"query": token})
}

// FilterByPredicate returns the label of every subject having pred val
func (graphClient *GraphDbClient) FilterByPredicate(ctx context.Context, pred rdf.IRI, val rdf.Term) (*common.Model, error) {
	return graphClient.RunTemplate(ctx, query.FilterTemplate, query.Bindings{"pred": pred, "val": val})
}

// Add stores every triple of the model, in graph when one is given
// and in the default graph otherwise
func (graphClient *GraphDbClient) Add(ctx context.Context, model *common.Model, graph *rdf.IRI) error {
	if model == nil || model.IsEmpty() {
		return nil
	}
	target := graphClient.BaseStatementsUrl
	if graph != nil {
		target += "?" + query.StatementPattern{Graph: graph}.Params().Encode()
	}

	req, err := graphClient.newRequest(ctx, http.MethodPost, target, strings.NewReader(common.ModelToNTriples(model)))
	if err != nil {
		return &OperationError{Op: "add", Write: true, Err: err}
	}
	req.Header.Set("Content-Type", contentTypeNTriples)

	attrs := []attribute.KeyValue{attribute.Int("statements", model.Len())}
	if graph != nil {
		attrs = append(attrs, attribute.String("graph", graph.String()))
	}
	return graphClient.exchange("add", true, req, nil, attrs...)
}

// Delete removes the statements matching the subject and graph filter
func (graphClient *GraphDbClient) Delete(ctx context.Context, subject, graph *rdf.IRI) error {
	pattern := query.StatementPattern{Subject: subject, Graph: graph}
	if pattern.IsEmpty() {
		return ErrMissingFilter
	}

	req, err := graphClient.newRequest(ctx, http.MethodDelete, graphClient.BaseStatementsUrl+"?"+pattern.Params().Encode(), nil)
	if err != nil {
		return &OperationError{Op: "delete", Write: true, Err: err}
	}
	return graphClient.exchange("delete", true, req, nil, patternAttributes(pattern)...)
}

// Reindex asks the lucene plugin to rebuild the text index.
// Without a configured index nothing is sent
func (graphClient *GraphDbClient) Reindex(ctx context.Context) error {
	if graphClient.textIndex == nil {
		log.Info("No text index configured; skipping reindex")
		return nil
	}
	log.Infof("Rebuilding text index %s", graphClient.textIndex.IRI)

	req, err := graphClient.newRequest(ctx, http.MethodPost, graphClient.BaseStatementsUrl, strings.NewReader(query.ReindexCommand(graphClient.textIndex.IRI)))
	if err != nil {
		return &OperationError{Op: "reindex", Write: true, Err: err}
	}
	req.Header.Set("Content-Type", contentTypeSparqlUpdate)
	return graphClient.exchange("reindex", true, req, nil, attribute.String("index", graphClient.textIndex.IRI.String()))
}

// Export streams every statement of the store, or of graph when one
// is given, into fn. An error returned by fn stops the stream and is
// returned as is
func (graphClient *GraphDbClient) Export(ctx context.Context, graph *rdf.IRI, fn func(rdf.Quad) error) error {
	target := graphClient.BaseStatementsUrl
	var attrs []attribute.KeyValue
	if graph != nil {
		target += "?" + query.StatementPattern{Graph: graph}.Params().Encode()
		attrs = append(attrs, attribute.String("graph", graph.String()))
	}

	req, err := graphClient.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &OperationError{Op: "export", Err: err}
	}
	req.Header.Set("Accept", contentTypeNQuads)

	var callbackErr error
	err = graphClient.exchange("export", false, req, func(resp *http.Response) error {
		return common.DecodeQuads(resp.Body, func(q rdf.Quad) error {
			if err := fn(q); err != nil {
				callbackErr = err
				return err
			}
			return nil
		})
	}, attrs...)
	if callbackErr != nil {
		return callbackErr
	}
	return err
}

// Ping checks that the repository answers a trivial ASK query
func (graphClient *GraphDbClient) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("query", "ASK {}")
	req, err := graphClient.newRequest(ctx, http.MethodGet, graphClient.BaseRepositoryUrl+"?"+params.Encode(), nil)
	if err != nil {
		return &OperationError{Op: "ping", Err: err}
	}
	req.Header.Set("Accept", contentTypeSparqlJSON)

	return graphClient.exchange("ping", false, req, func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		answer := gjson.GetBytes(body, "boolean")
		if !answer.Exists() {
			return fmt.Errorf("unexpected ASK response: %s", string(body))
		}
		return nil
	})
}

// Create the repository from a graphdb ttl config unless it already exists
func (graphClient *GraphDbClient) CreateRepositoryIfNotExists(ctx context.Context, ttlConfigPath string) error {
	file, err := os.Open(ttlConfigPath)
	if err != nil {
		return fmt.Errorf("failed to open TTL config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("config", filepath.Base(ttlConfigPath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := graphClient.newRequest(ctx, http.MethodPost, graphClient.BaseRESTUrl+"/repositories", body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := graphClient.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(respBody), "already exists") {
		log.Warn("Repository already exists so skipping creation")
		return nil
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to create repository, status: %d, response: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (graphClient *GraphDbClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	ctx = custom_http_trace.WithClientTrace(ctx, target)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if graphClient.SparqlConf.Username != "" {
		req.SetBasicAuth(graphClient.SparqlConf.Username, graphClient.SparqlConf.Password)
	}
	return req, nil
}

// readModel runs a request answering with n-triples and decodes the result
func (graphClient *GraphDbClient) readModel(op string, req *http.Request, attrs ...attribute.KeyValue) (*common.Model, error) {
	var model *common.Model
	err := graphClient.exchange(op, false, req, func(resp *http.Response) error {
		var err error
		model, err = common.DecodeTriples(resp.Body, common.FormatNTriples)
		return err
	}, attrs...)
	if err != nil {
		return nil, err
	}
	query.SetNamespaces(model)
	metrics.StatementsReturned.WithLabelValues(op).Observe(float64(model.Len()))
	return model, nil
}

// exchange sends one request under a span named after op and hands a
// successful response to handle. The body is always closed before
// returning and every failure is reported as an *OperationError
func (graphClient *GraphDbClient) exchange(op string, write bool, req *http.Request, handle func(*http.Response) error, attrs ...attribute.KeyValue) (err error) {
	spanName := "triplestore." + op
	if op == "ping" {
		spanName = opentelemetry.HealthProbeSpan
	}
	// the span lives in the request context so the transport
	// spans of this exchange become its children
	span, spanCtx := opentelemetry.SubSpanFromCtxWithName(req.Context(), spanName, attrs...)
	req = req.WithContext(spanCtx)
	start := time.Now()
	defer func() {
		metrics.ObserveStoreOperation(op, start, err)
		opentelemetry.EndWithError(span, err)
	}()

	resp, err := graphClient.httpClient.Do(req)
	if err != nil {
		log.Errorf("%s request to %s failed: %v", op, req.URL.Redacted(), err)
		return &OperationError{Op: op, Write: write, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &OperationError{
			Op:     op,
			Write:  write,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("response: %s", strings.TrimSpace(string(body))),
		}
	}
	if handle == nil {
		return nil
	}
	if err := handle(resp); err != nil {
		return &OperationError{Op: op, Write: write, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func patternAttributes(p query.StatementPattern) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if p.Subject != nil {
		attrs = append(attrs, attribute.String("subject", p.Subject.String()))
	}
	if p.Graph != nil {
		attrs = append(attrs, attribute.String("graph", p.Graph.String()))
	}
	return attrs
}
