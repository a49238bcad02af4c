// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/Fedict/lod-link/internal/metrics"
	"github.com/Fedict/lod-link/internal/opentelemetry"
	"github.com/Fedict/lod-link/internal/query"
	"github.com/Fedict/lod-link/internal/s3"

	"github.com/klauspost/compress/gzip"
	"github.com/knakk/rdf"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const gzipExtension = ".gz"

// exported files are mirrored under this prefix in the bucket
const mirrorPrefix = "exports/"

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidFileName   = errors.New("invalid export file name")
)

// QuadSource streams the statements of the store, or of one graph
type QuadSource interface {
	Export(ctx context.Context, graph *rdf.IRI, fn func(rdf.Quad) error) error
}

// Mirror receives a copy of every file that was written completely
type Mirror interface {
	UploadFile(ctx context.Context, objectName string, localFileName string, opts s3.UploadOptions) error
}

// Task dumps the store into files of the export directory
type Task struct {
	Dir    string
	source QuadSource
	codec  *common.JsonldCodec
	// nil when no bucket is configured
	mirror Mirror
}

// Summary of one exported file
type Result struct {
	File   string
	Path   string
	Format common.Format
	SHA256 string
	Bytes  int64
}

func NewTask(dir string, source QuadSource, codec *common.JsonldCodec, mirror Mirror) *Task {
	return &Task{Dir: dir, source: source, codec: codec, mirror: mirror}
}

// ExportAll writes every file independently. A failing file does not
// stop the others; all failures are returned together
func (t *Task) ExportAll(ctx context.Context, files []string, graph *rdf.IRI) error {
	var errs []error
	for _, file := range files {
		result, err := t.Export(ctx, file, graph)
		if err != nil {
			log.WithFields(log.Fields{"file": file}).Errorf("Export failed: %v", err)
			metrics.ExportedFiles.WithLabelValues("failed").Inc()
			errs = append(errs, fmt.Errorf("exporting %s: %w", file, err))
			continue
		}
		metrics.ExportedFiles.WithLabelValues("written").Inc()
		log.WithFields(log.Fields{
			"file":   result.Path,
			"bytes":  result.Bytes,
			"sha256": result.SHA256,
		}).Info("Export written")
	}
	return errors.Join(errs...)
}

// Export writes the statements of the store, or of graph, to file in the
// export directory. The format follows the extension of the file, with an
// optional trailing .gz for compressed output. Existing files are never
// overwritten and a partial file may remain when the export fails
func (t *Task) Export(ctx context.Context, file string, graph *rdf.IRI) (result Result, err error) {
	if err := checkFileName(file); err != nil {
		return Result{}, err
	}
	base, compressed := strings.CutSuffix(file, gzipExtension)
	info, ok := common.FormatForFileName(base)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, file)
	}

	attrs := []attribute.KeyValue{attribute.String("file", file), attribute.String("format", string(info.Name))}
	if graph != nil {
		attrs = append(attrs, attribute.String("graph", graph.String()))
	}
	span, ctx := opentelemetry.SubSpanFromCtxWithName(ctx, "export.file", attrs...)
	defer func() { opentelemetry.EndWithError(span, err) }()

	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(t.Dir, file)
	log.Infof("Trying to write %s", path)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	hashing := common.NewHashingWriter(out)
	var zipped *gzip.Writer
	var dest io.Writer = hashing
	if compressed {
		zipped = gzip.NewWriter(hashing)
		dest = zipped
	}
	buffered := bufio.NewWriter(dest)

	if err := t.write(ctx, buffered, info.Name, graph); err != nil {
		return Result{}, err
	}
	if err := buffered.Flush(); err != nil {
		return Result{}, err
	}
	if zipped != nil {
		if err := zipped.Close(); err != nil {
			return Result{}, err
		}
	}

	result = Result{File: file, Path: path, Format: info.Name, SHA256: hashing.Sum(), Bytes: hashing.Written()}
	if t.mirror == nil {
		return result, nil
	}

	contentType := info.MIMEType
	if compressed {
		contentType = "application/gzip"
	}
	if err := t.mirror.UploadFile(ctx, mirrorPrefix+file, path, s3.UploadOptions{
		ContentType: contentType,
		SHA256:      result.SHA256,
	}); err != nil {
		return Result{}, fmt.Errorf("mirroring %s: %w", file, err)
	}
	return result, nil
}

func (t *Task) write(ctx context.Context, w io.Writer, format common.Format, graph *rdf.IRI) error {
	switch format {
	case common.FormatNQuads:
		return t.source.Export(ctx, graph, func(q rdf.Quad) error {
			_, err := io.WriteString(w, common.SerializeQuad(q))
			return err
		})
	case common.FormatNTriples, common.FormatTurtle:
		enc, err := common.NewTripleEncoder(w, format, query.Namespaces())
		if err != nil {
			return err
		}
		if err := t.source.Export(ctx, graph, func(q rdf.Quad) error {
			return enc.Encode(q.Triple)
		}); err != nil {
			return err
		}
		return enc.Close()
	case common.FormatJSONLD:
		if t.codec == nil {
			return fmt.Errorf("%w: no json-ld codec configured", ErrUnsupportedFormat)
		}
		// the json-ld processor needs the whole dataset at once
		var nquads strings.Builder
		if err := t.source.Export(ctx, graph, func(q rdf.Quad) error {
			nquads.WriteString(common.SerializeQuad(q))
			return nil
		}); err != nil {
			return err
		}
		return t.codec.EncodeNQuads(w, nquads.String(), query.Namespaces())
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func checkFileName(file string) error {
	if file == "" || file == "." || file == ".." ||
		strings.ContainsAny(file, `/\`) || filepath.Base(file) != file {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, file)
	}
	return nil
}
