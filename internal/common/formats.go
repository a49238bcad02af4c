// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"path/filepath"
	"strings"
)

// Format names an RDF serialization
type Format string

const (
	FormatJSONLD   Format = "jsonld"
	FormatNTriples Format = "ntriples"
	FormatTurtle   Format = "turtle"
	FormatNQuads   Format = "nquads"
)

// FormatInfo provides the metadata used to pick a format
// from a media type or a file name
type FormatInfo struct {
	Name      Format
	MIMEType  string
	Extension string
	// Whether the format can carry graph names
	Quads bool
}

// FormatRegistry contains metadata for all supported formats
var FormatRegistry = map[Format]FormatInfo{
	FormatJSONLD: {
		Name:      FormatJSONLD,
		MIMEType:  "application/ld+json",
		Extension: ".jsonld",
		Quads:     true,
	},
	FormatNTriples: {
		Name:      FormatNTriples,
		MIMEType:  "application/n-triples",
		Extension: ".nt",
	},
	FormatTurtle: {
		Name:      FormatTurtle,
		MIMEType:  "text/turtle",
		Extension: ".ttl",
	},
	FormatNQuads: {
		Name:      FormatNQuads,
		MIMEType:  "application/n-quads",
		Extension: ".nq",
		Quads:     true,
	},
}

// ResourceFormats are the formats a single resource can be
// exchanged in over http, the first one being the default
var ResourceFormats = []Format{FormatJSONLD, FormatNTriples, FormatTurtle}

// FormatForMediaType finds the format for a media type,
// ignoring parameters such as charset
func FormatForMediaType(mediaType string) (FormatInfo, bool) {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, info := range FormatRegistry {
		if info.MIMEType == mediaType {
			return info, true
		}
	}
	return FormatInfo{}, false
}

// FormatForFileName finds the format for a file from its extension
func FormatForFileName(name string) (FormatInfo, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return FormatInfo{}, false
	}
	for _, info := range FormatRegistry {
		if info.Extension == ext {
			return info, true
		}
	}
	return FormatInfo{}, false
}
