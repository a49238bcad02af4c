// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Fedict/lod-link/internal/config"
	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
	log "github.com/sirupsen/logrus"
)

// JsonldCodec converts between models and JSON-LD documents
type JsonldCodec struct {
	processor *ld.JsonLdProcessor
	loader    ld.DocumentLoader
}

// NewJsonldCodec builds the JSON-LD processor. With caching enabled remote
// contexts are fetched once, and the contexts mapped to local files are
// read from local files instead of the network
func NewJsonldCodec(cfg config.ContextConfig) (*JsonldCodec, error) {
	// remote contexts are not store traffic so they get retried
	fallbackLoader := ld.NewDefaultDocumentLoader(NewRetryableHTTPClient())
	codec := &JsonldCodec{
		processor: ld.NewJsonLdProcessor(),
		loader:    fallbackLoader,
	}
	mappings := cfg.Mappings()
	if !cfg.Cache && len(mappings) == 0 {
		return codec, nil
	}

	for prefix, file := range mappings {
		if !fileExists(file) {
			return nil, fmt.Errorf("context file for %s at %s does not exist or could not be accessed", prefix, file)
		}
	}
	cachingLoader := ld.NewCachingDocumentLoader(fallbackLoader)
	if err := cachingLoader.PreloadWithMapping(mappings); err != nil {
		return nil, err
	}
	codec.loader = cachingLoader
	return codec, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Errorf("error checking file existence: %v", err)
		}
		return false
	}
	return !info.IsDir()
}

func (c *JsonldCodec) options() *ld.JsonLdOptions {
	options := ld.NewJsonLdOptions("")
	options.ProcessingMode = ld.JsonLd_1_1
	options.DocumentLoader = c.loader
	return options
}

// Decode reads a JSON-LD document into a model. Triples from
// every graph of the document end up in the model
func (c *JsonldCodec) Decode(r io.Reader) (*Model, error) {
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing json-ld: %w", err)
	}
	res, err := c.processor.ToRDF(doc, c.options())
	if err != nil {
		log.Error("Error when transforming JSON-LD document to RDF:", err)
		return nil, fmt.Errorf("converting json-ld to rdf: %w", err)
	}
	dataset, ok := res.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("unexpected json-ld result %T", res)
	}

	model := NewModel()
	for _, quads := range dataset.Graphs {
		for _, q := range quads {
			triple, err := ldQuadToTriple(q)
			if err != nil {
				return nil, err
			}
			model.Add(triple)
		}
	}
	return model, nil
}

// Encode writes the model as compacted JSON-LD using
// the namespaces of the model as the context
func (c *JsonldCodec) Encode(w io.Writer, model *Model) error {
	return c.EncodeNQuads(w, ModelToNTriples(model), model.Namespaces())
}

// EncodeNQuads writes N-Quads text as compacted JSON-LD. Named
// graphs are kept as @graph entries
func (c *JsonldCodec) EncodeNQuads(w io.Writer, nquads string, namespaces []Namespace) error {
	options := c.options()
	options.Format = "application/n-quads"
	expanded, err := c.processor.FromRDF(nquads, options)
	if err != nil {
		return fmt.Errorf("converting rdf to json-ld: %w", err)
	}

	context := make(map[string]interface{}, len(namespaces))
	for _, ns := range namespaces {
		context[ns.Prefix] = ns.IRI
	}
	compacted, err := c.processor.Compact(expanded, map[string]interface{}{"@context": context}, c.options())
	if err != nil {
		return fmt.Errorf("compacting json-ld: %w", err)
	}
	return json.NewEncoder(w).Encode(compacted)
}

func ldQuadToTriple(q *ld.Quad) (rdf.Triple, error) {
	subjTerm, err := ldNodeToTerm(q.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	predTerm, err := ldNodeToTerm(q.Predicate)
	if err != nil {
		return rdf.Triple{}, err
	}
	objTerm, err := ldNodeToTerm(q.Object)
	if err != nil {
		return rdf.Triple{}, err
	}

	subj, ok := subjTerm.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("%s cannot be a subject", subjTerm)
	}
	pred, ok := predTerm.(rdf.Predicate)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("%s cannot be a predicate", predTerm)
	}
	obj, ok := objTerm.(rdf.Object)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("%s cannot be an object", objTerm)
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

func ldNodeToTerm(node ld.Node) (rdf.Term, error) {
	switch n := node.(type) {
	case *ld.IRI:
		return rdf.NewIRI(n.Value)
	case *ld.BlankNode:
		return rdf.NewBlank(strings.TrimPrefix(n.Attribute, "_:"))
	case *ld.Literal:
		if n.Language != "" {
			return rdf.NewLangLiteral(n.Value, n.Language)
		}
		if n.Datatype == "" {
			return rdf.NewLiteral(n.Value)
		}
		datatype, err := rdf.NewIRI(n.Datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(n.Value, datatype), nil
	default:
		return nil, fmt.Errorf("unsupported json-ld node %T", node)
	}
}
