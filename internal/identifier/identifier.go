// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package identifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/knakk/rdf"
)

/*
This file turns raw strings coming from clients into the
identifiers handed to the triplestore.

Subjects and graphs may be given either as an absolute IRI
or as a short name that is resolved against the link or the
graph base namespace.
*/

// Returned when a string cannot be used as an absolute IRI
var ErrInvalidIdentifier = errors.New("invalid identifier")

const (
	DefaultLinkBase  = "http://id.belgium.be/link/"
	DefaultGraphBase = "http://id.belgium.be/graph/link/"
)

// Factory builds identifiers. It holds no mutable state and
// is created once at startup, then passed to whoever needs it
type Factory struct {
	// namespace that short subject names are appended to
	LinkBase string
	// namespace that short graph names are appended to
	GraphBase string
}

func NewFactory(linkBase, graphBase string) Factory {
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	if graphBase == "" {
		graphBase = DefaultGraphBase
	}
	return Factory{LinkBase: linkBase, GraphBase: graphBase}
}

// AsURI wraps raw as an absolute IRI
func (f Factory) AsURI(raw string) (rdf.IRI, error) {
	if raw == "" {
		return rdf.IRI{}, fmt.Errorf("%w: empty string", ErrInvalidIdentifier)
	}
	if !isAbsolute(raw) {
		return rdf.IRI{}, fmt.Errorf("%w: %s has no scheme", ErrInvalidIdentifier, raw)
	}
	if i := strings.IndexFunc(raw, illegalIRIRune); i >= 0 {
		return rdf.IRI{}, fmt.Errorf("%w: %s contains %q", ErrInvalidIdentifier, raw, raw[i])
	}
	iri, err := rdf.NewIRI(raw)
	if err != nil {
		return rdf.IRI{}, fmt.Errorf("%w: %s: %v", ErrInvalidIdentifier, raw, err)
	}
	return iri, nil
}

// AsGraphID resolves a graph name against the graph base namespace.
// Names that are already absolute are returned unchanged
func (f Factory) AsGraphID(name string) (rdf.IRI, error) {
	return f.resolve(f.GraphBase, name)
}

// AsSubjectID resolves a subject name against the link base namespace.
// Names that are already absolute are returned unchanged
func (f Factory) AsSubjectID(name string) (rdf.IRI, error) {
	return f.resolve(f.LinkBase, name)
}

func (f Factory) resolve(base, name string) (rdf.IRI, error) {
	if name == "" {
		return rdf.IRI{}, fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if isAbsolute(name) {
		return f.AsURI(name)
	}
	return f.AsURI(base + name)
}

// AsLiteral wraps text as a plain string literal
func (f Factory) AsLiteral(text string) rdf.Literal {
	// NewLiteral only fails for unsupported go types
	lit, _ := rdf.NewLiteral(text)
	return lit
}

// a string is absolute if it parses and carries a scheme
func isAbsolute(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

// characters excluded from IRIs by RFC 3987, plus controls and space
func illegalIRIRune(r rune) bool {
	if r <= 0x20 {
		return true
	}
	return strings.ContainsRune("<>\"{}|^`\\", r)
}
