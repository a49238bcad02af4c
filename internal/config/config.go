// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// The top level config for the link service and its commands
type LinkConfig struct {
	Server  ServerConfig
	Sparql  SparqlConfig
	Export  ExportConfig
	Minio   MinioConfig
	Context ContextConfig
}

// The config for the http api
type ServerConfig struct {
	Listen string `arg:"--listen" help:"address the http server listens on" default:":8080"`
	// credentials required for modifying links; when empty every write is refused
	Username string `arg:"--username,env:LINK_USERNAME" help:"user allowed to add or remove links"`
	Password string `arg:"--password,env:LINK_PASSWORD" help:"password of the user allowed to add or remove links"`
	// namespaces that short names are resolved against
	LinkBase  string `arg:"--link-base" help:"namespace for short subject names" default:"http://id.belgium.be/link/"`
	GraphBase string `arg:"--graph-base" help:"namespace for short graph names" default:"http://id.belgium.be/graph/link/"`
	// how often the triplestore is probed for the health check
	HealthInterval time.Duration `arg:"--health-interval" help:"interval between triplestore health probes" default:"30s"`
}

// The config for sparql and graph interactions
type SparqlConfig struct {
	Endpoint   string `arg:"--endpoint" help:"endpoint for server for the SPARQL endpoints" default:"http://127.0.0.1:7200"`
	Repository string `arg:"--repository" help:"the repository holding the links" default:"link"`
	Username   string `arg:"--store-username,env:STORE_USERNAME" help:"user for basic auth against the triplestore"`
	Password   string `arg:"--store-password,env:STORE_PASSWORD" help:"password for basic auth against the triplestore"`
	// IRI of the lucene connector; full text reindexing is disabled when empty
	TextIndex string `arg:"--text-index" help:"IRI of the lucene index used for full text search"`
}

// The config for rdf exports
type ExportConfig struct {
	Dir string `arg:"--export-dir" help:"directory export files are written to" default:"exports"`
}

// The config for minio/s3 operations
type MinioConfig struct {
	Address   string `arg:"--address" help:"The address of the s3 server" default:"127.0.0.1"` // The address of the minio server
	Port      int    `arg:"--port" default:"9000"`
	Accesskey string `arg:"--s3-access-key,env:S3_ACCESS_KEY" help:"Access Key (i.e. username)" default:"minioadmin"` // Access Key (i.e. username)
	Secretkey string `arg:"--s3-secret-key,env:S3_SECRET_KEY" help:"Secret Key (i.e. password)" default:"minioadmin"` // Secret Key (i.e. password)
	// exports are only mirrored when a bucket is set
	Bucket string `arg:"--bucket" help:"The s3 bucket exports are copied to"`
	Region string `arg:"--region" help:"region for the s3 server"` // region for the minio server
	SSL    bool   `arg:"--ssl" help:"Use SSL when connecting to s3"`
}

// The config for jsonld context operations
type ContextConfig struct {
	// whether or not to cache remote contexts when
	// decoding json-ld
	Cache bool `arg:"--cache" help:"use cache for context"`
	// remote context urls mapped to local files
	PrefixToFile map[string]string `arg:"--prefixes-to-file" help:"context url to file mapping; used for caching"`
	// the same mapping as read from a config file; urls contain
	// dots so they cannot be used as yaml keys
	ContextMaps []ContextMap `arg:"-"`
}

// A remote context url and the local file holding its content
type ContextMap struct {
	Prefix string
	File   string
}

// Mappings merges the flag and config file context mappings.
// Config file entries win when both name the same url
func (c ContextConfig) Mappings() map[string]string {
	mappings := make(map[string]string, len(c.PrefixToFile)+len(c.ContextMaps))
	for prefix, file := range c.PrefixToFile {
		mappings[prefix] = file
	}
	for _, m := range c.ContextMaps {
		mappings[m.Prefix] = m.File
	}
	return mappings
}

// MirrorEnabled reports whether exports should be copied to s3
func (m MinioConfig) MirrorEnabled() bool {
	return m.Bucket != ""
}

// Validate checks the values that cannot be caught by flag parsing
func (c LinkConfig) Validate() error {
	var errs []error

	endpoint, err := url.Parse(c.Sparql.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		errs = append(errs, fmt.Errorf("sparql endpoint %q is not an absolute url", c.Sparql.Endpoint))
	}
	if c.Sparql.Repository == "" {
		errs = append(errs, errors.New("sparql repository must be set"))
	}
	if c.Server.HealthInterval <= 0 {
		errs = append(errs, fmt.Errorf("health interval must be positive, got %s", c.Server.HealthInterval))
	}
	if (c.Server.Username == "") != (c.Server.Password == "") {
		errs = append(errs, errors.New("username and password must be set together"))
	}
	if c.Export.Dir == "" {
		errs = append(errs, errors.New("export directory must be set"))
	}
	return errors.Join(errs...)
}
