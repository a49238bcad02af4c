// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/require"
)

const twoTriples = `<http://example.org/a> <http://schema.org/name> "A" .
<http://example.org/a> <http://schema.org/url> <http://example.org/page> .
`

func TestDecodeTriples(t *testing.T) {
	t.Run("ntriples", func(t *testing.T) {
		m, err := DecodeTriples(strings.NewReader(twoTriples), FormatNTriples)
		require.NoError(t, err)
		require.Equal(t, 2, m.Len())
		require.Equal(t, "http://schema.org/name", m.Triples()[0].Pred.String())
	})

	t.Run("turtle with prefixes", func(t *testing.T) {
		const ttl = `@prefix schema: <http://schema.org/> .
<http://example.org/a> schema:name "A" ;
	schema:url <http://example.org/page> .
`
		m, err := DecodeTriples(strings.NewReader(ttl), FormatTurtle)
		require.NoError(t, err)
		require.Equal(t, 2, m.Len())
		require.Equal(t, "http://example.org/page", m.Triples()[1].Obj.String())
	})

	t.Run("empty input is an empty model", func(t *testing.T) {
		m, err := DecodeTriples(strings.NewReader(""), FormatNTriples)
		require.NoError(t, err)
		require.True(t, m.IsEmpty())
	})

	t.Run("malformed input fails", func(t *testing.T) {
		_, err := DecodeTriples(strings.NewReader("<http://example.org/a> oops ."), FormatNTriples)
		require.Error(t, err)
	})

	t.Run("json-ld is not a triple syntax", func(t *testing.T) {
		_, err := DecodeTriples(strings.NewReader("{}"), FormatJSONLD)
		require.Error(t, err)
	})
}

func TestEncodeTriples(t *testing.T) {
	m, err := DecodeTriples(strings.NewReader(twoTriples), FormatNTriples)
	require.NoError(t, err)
	m.SetNamespace("schema", "http://schema.org/")

	for _, format := range []Format{FormatNTriples, FormatTurtle} {
		var buf bytes.Buffer
		require.NoError(t, EncodeTriples(&buf, m, format))

		back, err := DecodeTriples(&buf, format)
		require.NoError(t, err, format)
		require.Equal(t, ModelToNTriples(m), ModelToNTriples(back), format)
	}
}

func TestEncodeTurtleKeepsModelOrder(t *testing.T) {
	const unsorted = `<http://example.org/z> <http://schema.org/name> "Z" .
<http://example.org/a> <http://schema.org/name> "A" .
`
	m, err := DecodeTriples(strings.NewReader(unsorted), FormatNTriples)
	require.NoError(t, err)
	m.SetNamespace("schema", "http://schema.org/")

	var buf bytes.Buffer
	require.NoError(t, EncodeTriples(&buf, m, FormatTurtle))
	require.Equal(t, unsorted, ModelToNTriples(m))

	// the document lists subjects in the order the store returned them
	back, err := DecodeTriples(&buf, FormatTurtle)
	require.NoError(t, err)
	require.Equal(t, unsorted, ModelToNTriples(back))
}

func TestModelToNTriples(t *testing.T) {
	m, err := DecodeTriples(strings.NewReader(twoTriples), FormatNTriples)
	require.NoError(t, err)
	require.Equal(t, twoTriples, ModelToNTriples(m))
	require.Equal(t, "", ModelToNTriples(NewModel()))
}

func TestQuads(t *testing.T) {
	const nq = `<http://example.org/a> <http://schema.org/name> "A" <http://id.belgium.be/graph/link/g1> .
<http://example.org/b> <http://schema.org/name> "B" .
`
	var quads []rdf.Quad
	err := DecodeQuads(strings.NewReader(nq), func(q rdf.Quad) error {
		quads = append(quads, q)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, quads, 2)

	require.True(t, HasNamedGraph(quads[0]))
	require.False(t, HasNamedGraph(quads[1]))

	var out strings.Builder
	for _, q := range quads {
		out.WriteString(SerializeQuad(q))
	}
	require.Equal(t, nq, out.String())

	t.Run("callback errors stop decoding", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := DecodeQuads(strings.NewReader(nq), func(rdf.Quad) error {
			calls++
			return stop
		})
		require.ErrorIs(t, err, stop)
		require.Equal(t, 1, calls)
	})

	t.Run("quad without a context", func(t *testing.T) {
		q := rdf.Quad{Triple: quads[1].Triple}
		require.Equal(t, `<http://example.org/b> <http://schema.org/name> "B" .`+"\n", SerializeQuad(q))
	})
}
