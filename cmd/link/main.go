// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/trace"
	"strings"
	"syscall"

	"github.com/Fedict/lod-link/internal/common"
	"github.com/Fedict/lod-link/internal/config"
	"github.com/Fedict/lod-link/internal/custom_http_trace"
	"github.com/Fedict/lod-link/internal/export"
	"github.com/Fedict/lod-link/internal/identifier"
	"github.com/Fedict/lod-link/internal/opentelemetry"
	"github.com/Fedict/lod-link/internal/s3"
	"github.com/Fedict/lod-link/internal/server"
	"github.com/Fedict/lod-link/internal/triplestore"

	"github.com/alexflint/go-arg"
	"github.com/knakk/rdf"
	log "github.com/sirupsen/logrus"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type ServeCmd struct{}
type ReindexCmd struct{}
type ExportCmd struct {
	Files []string `arg:"positional,required" help:"files to write in the export directory; the extension picks the format"`
	Graph string   `arg:"--graph" help:"only export this graph"`
}
type CreateRepositoryCmd struct {
	Config string `arg:"positional,required" help:"graphdb repository config in turtle"`
}

type LinkArgs struct {
	// Subcommands that can be run
	Serve            *ServeCmd            `arg:"subcommand:serve" help:"serve the link api"`
	Export           *ExportCmd           `arg:"subcommand:export" help:"export the triplestore to files"`
	Reindex          *ReindexCmd          `arg:"subcommand:reindex" help:"rebuild the full text index of the triplestore"`
	CreateRepository *CreateRepositoryCmd `arg:"subcommand:create-repository" help:"create the graphdb repository unless it exists"`

	// Flags that can be set for config particular services / operations
	config.ServerConfig
	config.SparqlConfig
	config.ExportConfig
	config.MinioConfig
	config.ContextConfig

	// Flags that can be set which affect all operations
	LogLevel     string `arg:"--log-level" default:"INFO"`
	Config       string `arg:"--config" help:"yaml file whose values override the flags"`
	Trace        bool   `arg:"--trace" help:"record a runtime trace and the store connection events; both are uploaded to the s3 bucket"`
	UseOtel      bool   `arg:"--use-otel"`
	OtelEndpoint string `arg:"--otel-endpoint" help:"OpenTelemetry endpoint"`
}

// ToStructuredConfig converts the args to a structured config
// that can be used for more config isolation
func (l LinkArgs) ToStructuredConfig() config.LinkConfig {
	return config.LinkConfig{
		Server:  l.ServerConfig,
		Sparql:  l.SparqlConfig,
		Export:  l.ExportConfig,
		Minio:   l.MinioConfig,
		Context: l.ContextConfig,
	}
}

type LinkRunner struct {
	args LinkArgs
	cfg  config.LinkConfig
}

// NewLinkRunner parses the command line, without the binary name,
// and the optional config file
func NewLinkRunner(cliArgs []string) (LinkRunner, error) {
	args := LinkArgs{}
	parser, err := arg.NewParser(arg.Config{Program: "link"}, &args)
	if err != nil {
		return LinkRunner{}, err
	}
	if err := parser.Parse(cliArgs); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			parser.WriteHelp(os.Stdout)
		}
		return LinkRunner{}, err
	}
	if parser.Subcommand() == nil {
		parser.WriteHelp(os.Stderr)
		return LinkRunner{}, errors.New("no subcommand provided")
	}

	cfg := args.ToStructuredConfig()
	if args.Config != "" {
		if err := config.ApplyFile(args.Config, &cfg); err != nil {
			return LinkRunner{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return LinkRunner{}, err
	}
	return LinkRunner{args: args, cfg: cfg}, nil
}

func traceFilePath() string {
	return filepath.Join(os.TempDir(), "link-trace.out")
}

func httpTraceFilePath() string {
	return filepath.Join(os.TempDir(), "link-http-trace.csv")
}

// uploadTracefiles puts the runtime trace and the http trace of
// this run in the bucket, named after the command line
func uploadTracefiles(ctx context.Context, minioConfig config.MinioConfig) error {
	if !minioConfig.MirrorEnabled() {
		log.Warnf("No bucket configured; trace files left at %s and %s", traceFilePath(), httpTraceFilePath())
		return nil
	}
	mc, err := s3.NewMinioClientWrapper(minioConfig)
	if err != nil {
		return err
	}
	joinedArgs := strings.Join(os.Args[1:], "_")
	// replace all special characters with underscore
	joinedArgs = strings.NewReplacer("/", "_", ".", "_", "-", "_", ":", "_").Replace(joinedArgs)

	traceName := fmt.Sprintf("traces/trace_%s.out", joinedArgs)
	log.Debugf("Uploading trace file %s", traceName)
	if err := mc.UploadFile(ctx, traceName, traceFilePath(), s3.UploadOptions{ContentType: "application/octet-stream"}); err != nil {
		return err
	}
	httpTraceName := fmt.Sprintf("traces/http_trace_%s.csv", joinedArgs)
	return mc.UploadFile(ctx, httpTraceName, httpTraceFilePath(), s3.UploadOptions{ContentType: "text/csv"})
}

func (l LinkRunner) Run(ctx context.Context) error {
	level, err := log.ParseLevel(l.args.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", l.args.LogLevel, err)
	}
	log.SetLevel(level)

	if l.args.UseOtel || l.args.OtelEndpoint != "" {
		if l.args.OtelEndpoint == "" {
			l.args.OtelEndpoint = opentelemetry.DefaultTracingEndpoint
		}
		log.Infof("Starting opentelemetry traces and exporting to: %s", l.args.OtelEndpoint)
		if err := opentelemetry.InitTracer("lod-link", l.args.OtelEndpoint); err != nil {
			return err
		}
		defer opentelemetry.Shutdown(context.Background())
		if l.args.Serve == nil {
			// one span per command; the server creates spans per request
			var span otelTrace.Span
			span, ctx = opentelemetry.SubSpanFromCtxWithName(ctx, strings.Join(os.Args, "_"))
			defer span.End()
		}
	}

	if l.args.Trace {
		filePath := traceFilePath()
		log.Infof("Trace enabled; Outputting to %s", filePath)
		f, err := os.Create(filePath)
		if err != nil {
			return err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return err
		}
		stopHTTPTrace, err := custom_http_trace.Enable(httpTraceFilePath())
		if err != nil {
			trace.Stop()
			_ = f.Close()
			return err
		}
		defer func() {
			trace.Stop()
			_ = f.Close()
			if err := stopHTTPTrace(); err != nil {
				log.Errorf("error closing http trace file: %v", err)
			} else if err := custom_http_trace.SortByDuration(httpTraceFilePath()); err != nil {
				log.Errorf("error sorting http trace file: %v", err)
			}
			if err := uploadTracefiles(context.Background(), l.cfg.Minio); err != nil {
				log.Errorf("error uploading trace files: %v", err)
			}
		}()
	}

	store, err := triplestore.NewGraphDbClient(l.cfg.Sparql, nil)
	if err != nil {
		return err
	}

	switch {
	case l.args.CreateRepository != nil:
		return store.CreateRepositoryIfNotExists(ctx, l.args.CreateRepository.Config)
	case l.args.Reindex != nil:
		return store.Reindex(ctx)
	case l.args.Export != nil:
		codec, err := common.NewJsonldCodec(l.cfg.Context)
		if err != nil {
			return err
		}
		task, err := l.exportTask(ctx, store, codec)
		if err != nil {
			return err
		}
		var graph *rdf.IRI
		if l.args.Export.Graph != "" {
			ids := identifier.NewFactory(l.cfg.Server.LinkBase, l.cfg.Server.GraphBase)
			iri, err := ids.AsGraphID(l.args.Export.Graph)
			if err != nil {
				return err
			}
			graph = &iri
		}
		return task.ExportAll(ctx, l.args.Export.Files, graph)
	case l.args.Serve != nil:
		codec, err := common.NewJsonldCodec(l.cfg.Context)
		if err != nil {
			return err
		}
		task, err := l.exportTask(ctx, store, codec)
		if err != nil {
			return err
		}
		return server.NewServer(l.cfg.Server, store, task, codec).ListenAndServe(ctx)
	default:
		return fmt.Errorf("unknown link subcommand")
	}
}

// exportTask builds the export task, mirroring to s3 when a bucket is set
func (l LinkRunner) exportTask(ctx context.Context, store *triplestore.GraphDbClient, codec *common.JsonldCodec) (*export.Task, error) {
	var mirror export.Mirror
	if l.cfg.Minio.MirrorEnabled() {
		mc, err := s3.NewMinioClientWrapper(l.cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := mc.MakeDefaultBucket(ctx); err != nil {
			return nil, err
		}
		log.Infof("Mirroring exports to bucket %s", mc.DefaultBucket)
		mirror = mc
	}
	return export.NewTask(l.cfg.Export.Dir, store, codec, mirror), nil
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	runner, err := NewLinkRunner(os.Args[1:])
	if errors.Is(err, arg.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runner.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
