// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/knakk/rdf"
)

/*
Templates are fixed SPARQL CONSTRUCT queries. The query text never
changes between calls; the values of its variables travel next to it
as $name parameters of the repository endpoint, the way the RDF4J
protocol binds variables before evaluation. Plugin patterns such as
the lucene index therefore always see their object bound.

A search request is sent as the form:

	query=PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
	      CONSTRUCT { ?s rdfs:label ?o }
	      WHERE {
	      	?s <http://www.ontotext.com/owlim/lucene#myIndex> ?query .
	      	...
	      }
	$query="water*"
*/
type Template struct {
	// used for logging and span names
	Name      string
	Prologue  string
	Construct string
	// body of the WHERE group without the enclosing braces
	Where string
	// variables that must be bound when compiling
	Vars []string
}

// Text is the query sent to the store
func (t Template) Text() string {
	var sb strings.Builder
	sb.WriteString(t.Prologue)
	sb.WriteString(t.Construct)
	sb.WriteString("\nWHERE {\n")
	sb.WriteString(t.Where)
	sb.WriteString("}\n")
	return sb.String()
}

// Form builds the request form for the repository endpoint. Every
// variable of the template must be bound and nothing else may be
func (t Template) Form(b Bindings) (url.Values, error) {
	for _, v := range t.Vars {
		if _, ok := b[v]; !ok {
			return nil, fmt.Errorf("%w: template %s requires ?%s", ErrInvalidBinding, t.Name, v)
		}
	}
	for name := range b {
		if !t.hasVar(name) {
			return nil, fmt.Errorf("%w: template %s has no variable ?%s", ErrInvalidBinding, t.Name, name)
		}
	}
	form, err := b.Params()
	if err != nil {
		return nil, err
	}
	form.Set("query", t.Text())
	return form, nil
}

func (t Template) hasVar(name string) bool {
	for _, v := range t.Vars {
		if v == name {
			return true
		}
	}
	return false
}

// picks the first of the label like properties a subject has
const labelSelection = `	OPTIONAL { ?s rdfs:label ?label }
	OPTIONAL { ?s dcterms:title ?title }
	OPTIONAL { ?s schema:name ?name }
	BIND(COALESCE(?label, ?title, ?name) AS ?o)
	FILTER(BOUND(?o))
`

// SearchTemplate finds subjects through a lucene text index and
// returns their label. The index is fixed when the template is built;
// the search token is bound to ?query
func SearchTemplate(index rdf.IRI) Template {
	return Template{
		Name:      "search",
		Prologue:  prologue("rdfs", "dcterms", "schema"),
		Construct: "CONSTRUCT { ?s rdfs:label ?o }",
		Where:     fmt.Sprintf("\t?s %s ?query .\n", index.Serialize(rdf.NTriples)) + labelSelection,
		Vars:      []string{"query"},
	}
}

// FilterTemplate returns the label of every subject having ?pred ?val
var FilterTemplate = Template{
	Name:      "filter",
	Prologue:  prologue("rdfs", "dcterms", "schema"),
	Construct: "CONSTRUCT { ?s rdfs:label ?o }",
	Where:     "\t?s ?pred ?val .\n" + labelSelection,
	Vars:      []string{"pred", "val"},
}

// SearchToken turns free text into a lucene prefix query
func SearchToken(text string) string {
	return text + "*"
}

// ReindexCommand is the SPARQL update asking the lucene
// plugin to rebuild the given index
func ReindexCommand(index rdf.IRI) string {
	return prologue("luc") + fmt.Sprintf("INSERT DATA { %s luc:updateIndex _:b1 . }\n", index.Serialize(rdf.NTriples))
}
