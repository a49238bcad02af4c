// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"strings"
	"testing"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/knakk/rdf"
	"github.com/stretchr/testify/require"
)

// remove all whitespace so queries can be compared regardless of layout
func stripWhitespace(expected string, actual string) (string, string) {
	replacer := strings.NewReplacer("\t", "", "\n", "", " ", "")
	return replacer.Replace(expected), replacer.Replace(actual)
}

func mustIRI(t *testing.T, s string) rdf.IRI {
	t.Helper()
	iri, err := rdf.NewIRI(s)
	require.NoError(t, err)
	return iri
}

func mustLiteral(t *testing.T, s string) rdf.Literal {
	t.Helper()
	lit, err := rdf.NewLiteral(s)
	require.NoError(t, err)
	return lit
}

func TestSetNamespaces(t *testing.T) {
	t.Run("empty model is untouched", func(t *testing.T) {
		m := common.NewModel()
		SetNamespaces(m)
		require.Empty(t, m.Namespaces())
		SetNamespaces(nil)
	})

	t.Run("full table in order", func(t *testing.T) {
		m := common.NewModel(rdf.Triple{
			Subj: mustIRI(t, "http://example.org/a"),
			Pred: mustIRI(t, "http://schema.org/name"),
			Obj:  mustLiteral(t, "A"),
		})
		SetNamespaces(m)
		var prefixes []string
		for _, ns := range m.Namespaces() {
			prefixes = append(prefixes, ns.Prefix)
		}
		require.Equal(t, []string{"dcterms", "foaf", "owl", "rdf", "rdfs", "schema", "skos", "void", "xsd"}, prefixes)
	})

	t.Run("table cannot be changed through a copy", func(t *testing.T) {
		copied := Namespaces()
		copied[0].IRI = "http://example.org/"
		require.Equal(t, "http://purl.org/dc/terms/", Namespaces()[0].IRI)
	})
}

func TestBindingsParams(t *testing.T) {
	t.Run("empty bindings give no parameters", func(t *testing.T) {
		params, err := Bindings{}.Params()
		require.NoError(t, err)
		require.Empty(t, params)
	})

	t.Run("one parameter per variable", func(t *testing.T) {
		params, err := Bindings{
			"val":  mustIRI(t, "http://example.org/theme/water"),
			"pred": mustIRI(t, DcatTheme),
		}.Params()
		require.NoError(t, err)
		require.Len(t, params, 2)
		require.Equal(t, "<http://www.w3.org/ns/dcat#theme>", params.Get("$pred"))
		require.Equal(t, "<http://example.org/theme/water>", params.Get("$val"))
	})

	t.Run("literals are escaped", func(t *testing.T) {
		params, err := Bindings{"query": mustLiteral(t, `water" } ; DROP ALL ; {`)}.Params()
		require.NoError(t, err)
		require.Equal(t, `"water\" } ; DROP ALL ; {"`, params.Get("$query"))
	})

	t.Run("bad bindings are rejected", func(t *testing.T) {
		blank, err := rdf.NewBlank("b1")
		require.NoError(t, err)
		for _, b := range []Bindings{
			{"bad name": mustIRI(t, "http://example.org/a")},
			{"?query": mustIRI(t, "http://example.org/a")},
			{"query": nil},
			{"query": blank},
		} {
			_, err := b.Params()
			require.ErrorIs(t, err, ErrInvalidBinding)
		}
	})
}

func TestFilterTemplate(t *testing.T) {
	form, err := FilterTemplate.Form(Bindings{
		"pred": mustIRI(t, DcatTheme),
		"val":  mustIRI(t, "http://example.org/theme/water"),
	})
	require.NoError(t, err)
	require.Equal(t, "<http://www.w3.org/ns/dcat#theme>", form.Get("$pred"))
	require.Equal(t, "<http://example.org/theme/water>", form.Get("$val"))

	expected := `
	PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
	PREFIX dcterms: <http://purl.org/dc/terms/>
	PREFIX schema: <http://schema.org/>
	CONSTRUCT { ?s rdfs:label ?o }
	WHERE {
		?s ?pred ?val .
		OPTIONAL { ?s rdfs:label ?label }
		OPTIONAL { ?s dcterms:title ?title }
		OPTIONAL { ?s schema:name ?name }
		BIND(COALESCE(?label, ?title, ?name) AS ?o)
		FILTER(BOUND(?o))
	}`
	expected, q := stripWhitespace(expected, form.Get("query"))
	require.Equal(t, expected, q)

	t.Run("query text does not depend on the bindings", func(t *testing.T) {
		other, err := FilterTemplate.Form(Bindings{
			"pred": mustIRI(t, DcatTheme),
			"val":  mustLiteral(t, "} DROP ALL {"),
		})
		require.NoError(t, err)
		require.Equal(t, form.Get("query"), other.Get("query"))
		require.NotContains(t, other.Get("query"), "DROP")
	})

	t.Run("missing variable", func(t *testing.T) {
		_, err := FilterTemplate.Form(Bindings{"pred": mustIRI(t, DcatTheme)})
		require.ErrorIs(t, err, ErrInvalidBinding)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := FilterTemplate.Form(Bindings{
			"pred": mustIRI(t, DcatTheme),
			"val":  mustIRI(t, "http://example.org/theme/water"),
			"s":    mustIRI(t, "http://example.org/a"),
		})
		require.ErrorIs(t, err, ErrInvalidBinding)
	})
}

func TestSearchTemplate(t *testing.T) {
	tpl := SearchTemplate(mustIRI(t, DefaultTextIndex))
	form, err := tpl.Form(Bindings{"query": mustLiteral(t, SearchToken("brussels"))})
	require.NoError(t, err)

	q := form.Get("query")
	require.Contains(t, q, "?s <http://www.ontotext.com/owlim/lucene#myIndex> ?query .")
	require.Contains(t, q, "BIND(COALESCE(?label, ?title, ?name) AS ?o)")
	require.True(t, strings.HasPrefix(q, "PREFIX rdfs:"))
	require.NotContains(t, q, "brussels")
	require.Equal(t, `"brussels*"`, form.Get("$query"))

	custom := SearchTemplate(mustIRI(t, "http://www.ontotext.com/owlim/lucene#links"))
	require.Contains(t, custom.Text(), "<http://www.ontotext.com/owlim/lucene#links> ?query")
}

func TestSearchToken(t *testing.T) {
	require.Equal(t, "brussels*", SearchToken("brussels"))
	require.Equal(t, "*", SearchToken(""))
}

func TestReindexCommand(t *testing.T) {
	cmd := ReindexCommand(mustIRI(t, DefaultTextIndex))
	expected := `
	PREFIX luc: <http://www.ontotext.com/owlim/lucene#>
	INSERT DATA { <http://www.ontotext.com/owlim/lucene#myIndex> luc:updateIndex _:b1 . }`
	expected, cmd = stripWhitespace(expected, cmd)
	require.Equal(t, expected, cmd)
}

func TestStatementPattern(t *testing.T) {
	require.True(t, StatementPattern{}.IsEmpty())
	require.Empty(t, StatementPattern{}.Params())

	subject := mustIRI(t, "http://id.belgium.be/link/abc")
	graph := mustIRI(t, "http://id.belgium.be/graph/link/statbel")

	p := StatementPattern{Subject: &subject}
	require.False(t, p.IsEmpty())
	require.Equal(t, "<http://id.belgium.be/link/abc>", p.Params().Get("subj"))
	require.False(t, p.Params().Has("context"))

	p = StatementPattern{Subject: &subject, Graph: &graph}
	require.Equal(t, "<http://id.belgium.be/graph/link/statbel>", p.Params().Get("context"))
}
