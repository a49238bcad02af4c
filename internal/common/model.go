// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"slices"

	"github.com/knakk/rdf"
)

// A prefix and the namespace IRI it abbreviates
type Namespace struct {
	Prefix string
	IRI    string
}

// Model is an in memory collection of triples that keeps insertion
// order and ignores duplicates. It also carries the namespaces that
// serializers may use to shorten IRIs
type Model struct {
	triples    []rdf.Triple
	seen       map[string]struct{}
	namespaces []Namespace
}

func NewModel(triples ...rdf.Triple) *Model {
	m := &Model{seen: make(map[string]struct{})}
	for _, t := range triples {
		m.Add(t)
	}
	return m
}

// Add appends a triple; returns false if it was already present
func (m *Model) Add(t rdf.Triple) bool {
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	key := t.Serialize(rdf.NTriples)
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	m.triples = append(m.triples, t)
	return true
}

// Triples returns a copy of the triples in the order they were added
func (m *Model) Triples() []rdf.Triple {
	return slices.Clone(m.triples)
}

func (m *Model) Len() int {
	return len(m.triples)
}

func (m *Model) IsEmpty() bool {
	return len(m.triples) == 0
}

// SetNamespace registers prefix for iri. A prefix that is already
// registered keeps its position and gets the new iri
func (m *Model) SetNamespace(prefix, iri string) {
	for i, ns := range m.namespaces {
		if ns.Prefix == prefix {
			m.namespaces[i].IRI = iri
			return
		}
	}
	m.namespaces = append(m.namespaces, Namespace{Prefix: prefix, IRI: iri})
}

// Namespaces returns the registered namespaces in registration order
func (m *Model) Namespaces() []Namespace {
	return m.namespaces
}
