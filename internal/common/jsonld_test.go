// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Fedict/lod-link/internal/config"
	"github.com/piprate/json-gold/ld"
	"github.com/stretchr/testify/require"
)

func TestNewJsonldCodec(t *testing.T) {
	t.Run("empty config returns a plain loader", func(t *testing.T) {
		codec, err := NewJsonldCodec(config.ContextConfig{})
		require.NoError(t, err)
		require.IsType(t, &ld.DefaultDocumentLoader{}, codec.loader)
	})

	t.Run("cache with local contexts", func(t *testing.T) {
		codec, err := NewJsonldCodec(config.ContextConfig{
			Cache:        true,
			PrefixToFile: map[string]string{"https://example.org/context.jsonld": "testdata/context.jsonld"},
		})
		require.NoError(t, err)
		require.IsType(t, &ld.CachingDocumentLoader{}, codec.loader)

		const doc = `{
			"@context": "https://example.org/context.jsonld",
			"@id": "http://example.org/a",
			"name": "A",
			"theme": "http://example.org/themes/water"
		}`
		m, err := codec.Decode(strings.NewReader(doc))
		require.NoError(t, err)
		require.Equal(t, 2, m.Len())
		nt := ModelToNTriples(m)
		require.Contains(t, nt, `<http://example.org/a> <http://schema.org/name> "A"`)
		require.Contains(t, nt, `<http://example.org/a> <http://www.w3.org/ns/dcat#theme> <http://example.org/themes/water> .`)
	})

	t.Run("missing context file fails", func(t *testing.T) {
		_, err := NewJsonldCodec(config.ContextConfig{
			PrefixToFile: map[string]string{"https://example.org/context.jsonld": "testdata/missing.jsonld"},
		})
		require.Error(t, err)
	})
}

func TestJsonldRoundTrip(t *testing.T) {
	codec, err := NewJsonldCodec(config.ContextConfig{})
	require.NoError(t, err)

	m, err := DecodeTriples(strings.NewReader(twoTriples), FormatNTriples)
	require.NoError(t, err)
	m.SetNamespace("schema", "http://schema.org/")

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, m))
	require.Contains(t, buf.String(), `"schema:name":"A"`)
	require.Contains(t, buf.String(), `"@id":"http://example.org/a"`)

	back, err := codec.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, back.Len())
	require.Contains(t, ModelToNTriples(back), `<http://example.org/a> <http://schema.org/url> <http://example.org/page> .`)
}

func TestJsonldDecodeErrors(t *testing.T) {
	codec, err := NewJsonldCodec(config.ContextConfig{})
	require.NoError(t, err)

	_, err = codec.Decode(strings.NewReader("{not json"))
	require.Error(t, err)
}

func TestJsonldBlankNodesAndLanguages(t *testing.T) {
	codec, err := NewJsonldCodec(config.ContextConfig{})
	require.NoError(t, err)

	const doc = `{
		"@id": "http://example.org/a",
		"http://www.w3.org/2000/01/rdf-schema#label": {"@value": "Brussel", "@language": "nl"},
		"http://schema.org/address": {"http://schema.org/postalCode": "1000"}
	}`
	m, err := codec.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())
	require.Contains(t, ModelToNTriples(m), `"Brussel"@nl`)
	require.Contains(t, ModelToNTriples(m), `_:`)
}
