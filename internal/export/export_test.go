// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/Fedict/lod-link/internal/config"
	"github.com/Fedict/lod-link/internal/metrics"
	"github.com/Fedict/lod-link/internal/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/knakk/rdf"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const dump = "<http://example.org/a> <http://www.w3.org/2000/01/rdf-schema#label> \"A\" <http://example.org/graph/1> .\n" +
	"<http://example.org/b> <http://www.w3.org/2000/01/rdf-schema#label> \"B\" .\n"

type fakeSource struct {
	quads  []rdf.Quad
	err    error
	graphs []*rdf.IRI
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	src := &fakeSource{}
	err := common.DecodeQuads(strings.NewReader(dump), func(q rdf.Quad) error {
		src.quads = append(src.quads, q)
		return nil
	})
	require.NoError(t, err)
	return src
}

func (f *fakeSource) Export(_ context.Context, graph *rdf.IRI, fn func(rdf.Quad) error) error {
	f.graphs = append(f.graphs, graph)
	for _, q := range f.quads {
		if err := fn(q); err != nil {
			return err
		}
	}
	return f.err
}

type upload struct {
	objectName string
	path       string
	opts       s3.UploadOptions
}

type fakeMirror struct {
	uploads []upload
	err     error
}

func (m *fakeMirror) UploadFile(_ context.Context, objectName string, localFileName string, opts s3.UploadOptions) error {
	m.uploads = append(m.uploads, upload{objectName: objectName, path: localFileName, opts: opts})
	return m.err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExportFormats(t *testing.T) {
	dir := t.TempDir()
	codec, err := common.NewJsonldCodec(config.ContextConfig{})
	require.NoError(t, err)
	task := NewTask(dir, newFakeSource(t), codec, nil)

	t.Run("nquads keep graph names", func(t *testing.T) {
		result, err := task.Export(context.Background(), "dump.nq", nil)
		require.NoError(t, err)
		require.Equal(t, common.FormatNQuads, result.Format)
		require.Equal(t, dump, readFile(t, result.Path))
	})

	t.Run("ntriples drop graph names", func(t *testing.T) {
		result, err := task.Export(context.Background(), "dump.nt", nil)
		require.NoError(t, err)
		content := readFile(t, result.Path)
		require.Contains(t, content, "<http://example.org/a> <http://www.w3.org/2000/01/rdf-schema#label> \"A\" .\n")
		require.NotContains(t, content, "graph/1")
		require.Equal(t, int64(len(content)), result.Bytes)
	})

	t.Run("turtle", func(t *testing.T) {
		result, err := task.Export(context.Background(), "dump.ttl", nil)
		require.NoError(t, err)
		content := readFile(t, result.Path)
		require.Contains(t, content, "<http://example.org/a>")
		require.Contains(t, content, "\"B\"")
	})

	t.Run("json-ld", func(t *testing.T) {
		result, err := task.Export(context.Background(), "dump.jsonld", nil)
		require.NoError(t, err)
		content := readFile(t, result.Path)
		require.True(t, json.Valid([]byte(content)))
		require.Contains(t, content, "rdfs:label")
		require.Contains(t, content, "http://example.org/graph/1")
	})

	t.Run("compressed", func(t *testing.T) {
		result, err := task.Export(context.Background(), "dump2.nq.gz", nil)
		require.NoError(t, err)
		f, err := os.Open(result.Path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		zr, err := gzip.NewReader(f)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.Equal(t, dump, string(plain))
	})
}

func TestExportRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	task := NewTask(dir, newFakeSource(t), nil, nil)

	_, err := task.Export(context.Background(), "dump.csv", nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	_, statErr := os.Stat(filepath.Join(dir, "dump.csv"))
	require.True(t, os.IsNotExist(statErr))

	_, err = task.Export(context.Background(), "dump.gz", nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	for _, name := range []string{"", "..", "../dump.nt", "sub/dump.nt", `sub\dump.nt`} {
		_, err = task.Export(context.Background(), name, nil)
		require.ErrorIs(t, err, ErrInvalidFileName, name)
	}

	t.Run("existing files are not overwritten", func(t *testing.T) {
		path := filepath.Join(dir, "existing.nt")
		require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))
		_, err := task.Export(context.Background(), "existing.nt", nil)
		require.ErrorIs(t, err, os.ErrExist)
		require.Equal(t, "keep", readFile(t, path))
	})

	t.Run("json-ld needs a codec", func(t *testing.T) {
		_, err := task.Export(context.Background(), "dump.jsonld", nil)
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestExportPassesGraph(t *testing.T) {
	src := newFakeSource(t)
	task := NewTask(t.TempDir(), src, nil, nil)
	graph, err := rdf.NewIRI("http://example.org/graph/1")
	require.NoError(t, err)

	_, err = task.Export(context.Background(), "graph.nq", &graph)
	require.NoError(t, err)
	require.Len(t, src.graphs, 1)
	require.Equal(t, "http://example.org/graph/1", src.graphs[0].String())
}

func TestExportAll(t *testing.T) {
	dir := t.TempDir()
	src := newFakeSource(t)
	task := NewTask(dir, src, nil, nil)

	failedBefore := testutil.ToFloat64(metrics.ExportedFiles.WithLabelValues("failed"))
	writtenBefore := testutil.ToFloat64(metrics.ExportedFiles.WithLabelValues("written"))

	err := task.ExportAll(context.Background(), []string{"bad.csv", "good.nt", "bad/path.nq"}, nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	require.ErrorIs(t, err, ErrInvalidFileName)
	require.FileExists(t, filepath.Join(dir, "good.nt"))

	require.Equal(t, failedBefore+2, testutil.ToFloat64(metrics.ExportedFiles.WithLabelValues("failed")))
	require.Equal(t, writtenBefore+1, testutil.ToFloat64(metrics.ExportedFiles.WithLabelValues("written")))

	t.Run("store failure leaves the other files alone", func(t *testing.T) {
		src.err = errors.New("store went away")
		err := task.ExportAll(context.Background(), []string{"broken.nq"}, nil)
		require.ErrorContains(t, err, "store went away")
		src.err = nil
		require.NoError(t, task.ExportAll(context.Background(), []string{"fine.nq"}, nil))
	})

	require.NoError(t, task.ExportAll(context.Background(), nil, nil))
}

func TestExportMirror(t *testing.T) {
	dir := t.TempDir()
	mirror := &fakeMirror{}
	task := NewTask(dir, newFakeSource(t), nil, mirror)

	result, err := task.Export(context.Background(), "dump.nq", nil)
	require.NoError(t, err)
	require.Len(t, mirror.uploads, 1)

	sum := sha256.Sum256([]byte(readFile(t, result.Path)))
	require.Equal(t, upload{
		objectName: "exports/dump.nq",
		path:       filepath.Join(dir, "dump.nq"),
		opts: s3.UploadOptions{
			ContentType: "application/n-quads",
			SHA256:      hex.EncodeToString(sum[:]),
		},
	}, mirror.uploads[0])
	require.Equal(t, result.SHA256, mirror.uploads[0].opts.SHA256)

	_, err = task.Export(context.Background(), "dump.nq.gz", nil)
	require.NoError(t, err)
	require.Equal(t, "application/gzip", mirror.uploads[1].opts.ContentType)

	t.Run("failed upload fails the file", func(t *testing.T) {
		mirror.err = errors.New("bucket is gone")
		_, err := task.Export(context.Background(), "other.nt", nil)
		require.ErrorContains(t, err, "bucket is gone")
	})

	t.Run("failed exports are not uploaded", func(t *testing.T) {
		mirror.err = nil
		before := len(mirror.uploads)
		_, err := task.Export(context.Background(), "dump.xml", nil)
		require.Error(t, err)
		require.Len(t, mirror.uploads, before)
	})
}

func TestCheckFileName(t *testing.T) {
	require.NoError(t, checkFileName("dump.nq"))
	require.NoError(t, checkFileName("dump.nq.gz"))
	require.Error(t, checkFileName("."))
}
