// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"net/url"

	"github.com/knakk/rdf"
)

// StatementPattern selects statements by subject, by graph or by both.
// It is sent to the statements endpoint of the store instead of a query
type StatementPattern struct {
	Subject *rdf.IRI
	Graph   *rdf.IRI
}

// IsEmpty reports whether the pattern would match the whole store
func (p StatementPattern) IsEmpty() bool {
	return p.Subject == nil && p.Graph == nil
}

// Params renders the pattern as rdf4j statement endpoint parameters
func (p StatementPattern) Params() url.Values {
	params := url.Values{}
	if p.Subject != nil {
		params.Set("subj", p.Subject.Serialize(rdf.NTriples))
	}
	if p.Graph != nil {
		params.Set("context", p.Graph.Serialize(rdf.NTriples))
	}
	return params
}
