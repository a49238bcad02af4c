// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Fedict/lod-link/internal/config"
	"github.com/Fedict/lod-link/internal/opentelemetry"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Wrapper to allow us to extend the minio client struct with new methods
type MinioClientWrapper struct {
	// Base client for accessing minio
	Client *minio.Client
	// Bucket that every operation works on
	DefaultBucket string
}

// Metadata stored next to an uploaded file
type UploadOptions struct {
	ContentType string
	// hex encoded sha256 of the content, kept as user metadata
	SHA256 string
}

// MinioConnection Set up minio and initialize client
func NewMinioClientWrapper(mcfg config.MinioConfig) (*MinioClientWrapper, error) {
	endpoint := mcfg.Address
	if mcfg.Port != 0 {
		endpoint = fmt.Sprintf("%s:%d", mcfg.Address, mcfg.Port)
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(mcfg.Accesskey, mcfg.Secretkey, ""),
		Secure: mcfg.SSL,
	}
	if mcfg.Region == "" {
		log.Info("Minio client created with no region set")
	} else {
		opts.Region = mcfg.Region
	}

	minioClient, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("creating minio client for %s: %w", endpoint, err)
	}
	return &MinioClientWrapper{Client: minioClient, DefaultBucket: mcfg.Bucket}, nil
}

// Create the default bucket if it does not exist yet
func (m *MinioClientWrapper) MakeDefaultBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.DefaultBucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.Client.MakeBucket(ctx, m.DefaultBucket, minio.MakeBucketOptions{})
}

// Upload a local file under objectName
func (m *MinioClientWrapper) UploadFile(ctx context.Context, objectName string, localFileName string, opts UploadOptions) error {
	span, ctx := opentelemetry.SubSpanFromCtxWithName(ctx, "s3.upload", attribute.String("object", objectName))
	var err error
	defer func() { opentelemetry.EndWithError(span, err) }()

	file, err := os.Open(localFileName)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	if opts.SHA256 != "" {
		putOpts.UserMetadata = map[string]string{"sha256": opts.SHA256}
	}
	_, err = m.Client.PutObject(ctx, m.DefaultBucket, objectName, file, info.Size(), putOpts)
	if err != nil {
		err = fmt.Errorf("uploading %s to %s/%s: %w", localFileName, m.DefaultBucket, objectName, err)
	}
	return err
}

// Store the content of a reader of unknown length
func (m *MinioClientWrapper) Store(ctx context.Context, objectName string, data io.Reader) error {
	_, err := m.Client.PutObject(ctx, m.DefaultBucket, objectName, data, -1, minio.PutObjectOptions{})
	return err
}

// Get an object from the store; the caller closes it
func (m *MinioClientWrapper) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return m.Client.GetObject(ctx, m.DefaultBucket, objectName, minio.GetObjectOptions{})
}

// Stat returns the metadata of an object
func (m *MinioClientWrapper) Stat(ctx context.Context, objectName string) (minio.ObjectInfo, error) {
	return m.Client.StatObject(ctx, m.DefaultBucket, objectName, minio.StatObjectOptions{})
}

func (m *MinioClientWrapper) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := m.Stat(ctx, objectName)
	if err == nil {
		return true, nil
	}
	// error code defined by the s3 api
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

// Remove an object from the store
func (m *MinioClientWrapper) Remove(ctx context.Context, objectName string) error {
	return m.Client.RemoveObject(ctx, m.DefaultBucket, objectName, minio.RemoveObjectOptions{GovernanceBypass: true})
}

// Return the objects whose name starts with prefix
func (m *MinioClientWrapper) ObjectList(ctx context.Context, prefix string) ([]minio.ObjectInfo, error) {
	var objects []minio.ObjectInfo
	for object := range m.Client.ListObjects(ctx, m.DefaultBucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, object)
	}
	return objects, nil
}
