// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/knakk/rdf"
	log "github.com/sirupsen/logrus"
)

// DecodeTriples reads N-Triples or Turtle from r into a new model
func DecodeTriples(r io.Reader, format Format) (*Model, error) {
	rdfFormat, err := tripleFormat(format)
	if err != nil {
		return nil, err
	}
	dec := rdf.NewTripleDecoder(r, rdfFormat)
	model := NewModel()
	for {
		triple, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return model, nil
		}
		if err != nil {
			log.Errorf("Error decoding triples: %v", err)
			return nil, fmt.Errorf("decoding %s: %w", format, err)
		}
		model.Add(triple)
	}
}

// EncodeTriples writes the model as N-Triples or Turtle.
// Turtle output abbreviates IRIs with the namespaces of the model
func EncodeTriples(w io.Writer, model *Model, format Format) error {
	enc, err := NewTripleEncoder(w, format, model.Namespaces())
	if err != nil {
		return err
	}
	// one triple at a time; EncodeAll sorts turtle input in place
	for _, t := range model.Triples() {
		if err := enc.Encode(t); err != nil {
			log.Errorf("Error encoding triples: %v", err)
			return err
		}
	}
	return enc.Close()
}

// NewTripleEncoder returns an encoder for N-Triples or Turtle. The
// namespaces are only used by Turtle. The caller must Close it
func NewTripleEncoder(w io.Writer, format Format, namespaces []Namespace) (*rdf.TripleEncoder, error) {
	rdfFormat, err := tripleFormat(format)
	if err != nil {
		return nil, err
	}
	enc := rdf.NewTripleEncoder(w, rdfFormat)
	if format == FormatTurtle {
		// the encoder maps namespace iris to prefixes
		enc.Namespaces = make(map[string]string, len(namespaces))
		for _, ns := range namespaces {
			enc.Namespaces[ns.IRI] = ns.Prefix
		}
	}
	return enc, nil
}

// ModelToNTriples renders every triple of the model on its own line
func ModelToNTriples(model *Model) string {
	var sb strings.Builder
	for _, t := range model.Triples() {
		sb.WriteString(t.Serialize(rdf.NTriples))
	}
	return sb.String()
}

// SerializeQuad renders q as one N-Quads line. Quads in the
// default graph are written without a graph term
func SerializeQuad(q rdf.Quad) string {
	if !HasNamedGraph(q) {
		return q.Triple.Serialize(rdf.NTriples)
	}
	return fmt.Sprintf("%s %s %s %s .\n",
		q.Subj.Serialize(rdf.NQuads),
		q.Pred.Serialize(rdf.NQuads),
		q.Obj.Serialize(rdf.NQuads),
		q.Ctx.Serialize(rdf.NQuads),
	)
}

// HasNamedGraph reports whether q belongs to a graph named by an IRI
func HasNamedGraph(q rdf.Quad) bool {
	return q.Ctx != nil && q.Ctx.Type() == rdf.TermIRI
}

// DecodeQuads streams the N-Quads in r into fn, stopping at the
// first decode error or the first error returned by fn
func DecodeQuads(r io.Reader, fn func(rdf.Quad) error) error {
	dec := rdf.NewQuadDecoder(r, rdf.NQuads)
	for {
		quad, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decoding nquads: %w", err)
		}
		if err := fn(quad); err != nil {
			return err
		}
	}
}

func tripleFormat(format Format) (rdf.Format, error) {
	switch format {
	case FormatNTriples:
		return rdf.NTriples, nil
	case FormatTurtle:
		return rdf.Turtle, nil
	default:
		return 0, fmt.Errorf("%s is not a triple syntax", format)
	}
}
