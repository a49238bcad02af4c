// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"

	"github.com/knakk/rdf"
)

// Returned when a template cannot be compiled with the given bindings
var ErrInvalidBinding = errors.New("invalid query binding")

var variableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Bindings maps template variable names (without the leading ?)
// to the IRI or literal they are bound to
type Bindings map[string]rdf.Term

// Params encodes the bindings as protocol parameters of the RDF4J
// repository endpoint: one $name parameter per variable, holding the
// term in N-Triples syntax. The store binds them before evaluating
// the query, so user input is never spliced into query text
func (b Bindings) Params() (url.Values, error) {
	params := url.Values{}
	for _, name := range b.names() {
		if !variableName.MatchString(name) {
			return nil, fmt.Errorf("%w: %q is not a variable name", ErrInvalidBinding, name)
		}
		term := b[name]
		if term == nil {
			return nil, fmt.Errorf("%w: ?%s is bound to nothing", ErrInvalidBinding, name)
		}
		switch term.Type() {
		case rdf.TermIRI, rdf.TermLiteral:
		default:
			return nil, fmt.Errorf("%w: ?%s must be bound to an IRI or a literal", ErrInvalidBinding, name)
		}
		params.Set("$"+name, term.Serialize(rdf.NTriples))
	}
	return params, nil
}

func (b Bindings) names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
