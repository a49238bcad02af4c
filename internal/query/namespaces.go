// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"strings"

	"github.com/Fedict/lod-link/internal/common"
)

const (
	LuceneNamespace = "http://www.ontotext.com/owlim/lucene#"
	// default text index of the graphdb lucene plugin
	DefaultTextIndex = LuceneNamespace + "myIndex"
	// predicate linking a dataset to its theme
	DcatTheme = "http://www.w3.org/ns/dcat#theme"
)

// namespaces attached to every non empty result, in output order
var namespaces = []common.Namespace{
	{Prefix: "dcterms", IRI: "http://purl.org/dc/terms/"},
	{Prefix: "foaf", IRI: "http://xmlns.com/foaf/0.1/"},
	{Prefix: "owl", IRI: "http://www.w3.org/2002/07/owl#"},
	{Prefix: "rdf", IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	{Prefix: "rdfs", IRI: "http://www.w3.org/2000/01/rdf-schema#"},
	{Prefix: "schema", IRI: "http://schema.org/"},
	{Prefix: "skos", IRI: "http://www.w3.org/2004/02/skos/core#"},
	{Prefix: "void", IRI: "http://rdfs.org/ns/void#"},
	{Prefix: "xsd", IRI: "http://www.w3.org/2001/XMLSchema#"},
}

// Namespaces returns a copy of the namespace table
func Namespaces() []common.Namespace {
	return append([]common.Namespace(nil), namespaces...)
}

// SetNamespaces attaches the namespace table to a model.
// Empty models are left untouched
func SetNamespaces(m *common.Model) {
	if m == nil || m.IsEmpty() {
		return
	}
	for _, ns := range namespaces {
		m.SetNamespace(ns.Prefix, ns.IRI)
	}
}

// prologue renders PREFIX declarations for the given prefixes
func prologue(prefixes ...string) string {
	var sb strings.Builder
	for _, prefix := range prefixes {
		iri, ok := namespaceIRI(prefix)
		if !ok {
			// templates are fixed at compile time so this is a programming error
			panic(fmt.Sprintf("unknown prefix %s", prefix))
		}
		sb.WriteString(fmt.Sprintf("PREFIX %s: <%s>\n", prefix, iri))
	}
	return sb.String()
}

func namespaceIRI(prefix string) (string, bool) {
	switch prefix {
	case "luc":
		return LuceneNamespace, true
	case "dcat":
		return "http://www.w3.org/ns/dcat#", true
	}
	for _, ns := range namespaces {
		if ns.Prefix == prefix {
			return ns.IRI, true
		}
	}
	return "", false
}
