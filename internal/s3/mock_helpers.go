// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"fmt"

	linkconfig "github.com/Fedict/lod-link/internal/config"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// A struct to represent the minio container
type MinioContainer struct {
	// the container itself. used for testcontainer cleanup
	Container *testcontainers.Container
	Hostname  string
	APIPort   int
	// the minio client for interacting with this container. This uses our
	// wrapper with the helper methods the exporter needs
	ClientWrapper *MinioClientWrapper
}

type MinioContainerConfig struct {
	// the username for the minio container
	Username string
	// the password for the minio container
	Password string
	// the bucket the client wrapper works on
	DefaultBucket string
}

// Config returns the flags a command needs to reach this container
func (m MinioContainer) Config(username, password string) linkconfig.MinioConfig {
	return linkconfig.MinioConfig{
		Address:   m.Hostname,
		Port:      m.APIPort,
		Accesskey: username,
		Secretkey: password,
		Bucket:    m.ClientWrapper.DefaultBucket,
	}
}

// Create a minio container with default credentials and an empty bucket for exports
func NewDefaultMinioContainer() (MinioContainer, error) {
	container, err := NewMinioContainerFromConfig(MinioContainerConfig{
		Username:      "minioadmin",
		Password:      "minioadmin",
		DefaultBucket: "link-exports",
	})
	if err != nil {
		return container, err
	}
	if err := container.ClientWrapper.MakeDefaultBucket(context.Background()); err != nil {
		return container, err
	}
	return container, err
}

// Spin up a local minio container
func NewMinioContainerFromConfig(config MinioContainerConfig) (MinioContainer, error) {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image: "minio/minio:latest",
		// only the api is needed, the console stays unexposed
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForHTTP("/minio/health/live").WithPort("9000"),
		Env: map[string]string{
			"MINIO_ROOT_USER":     config.Username,
			"MINIO_ROOT_PASSWORD": config.Password,
		},
		Cmd: []string{"server", "/data"},
	}

	genericContainerReq := testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	}

	genericContainer, err := testcontainers.GenericContainer(ctx, genericContainerReq)
	if err != nil {
		return MinioContainer{}, fmt.Errorf("generic container: %w", err)
	}

	hostname, err := genericContainer.Host(ctx)
	if err != nil {
		return MinioContainer{}, fmt.Errorf("get hostname: %w", err)
	}

	apiPort, err := genericContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		return MinioContainer{}, fmt.Errorf("get api port: %w", err)
	}

	wrapper, err := NewMinioClientWrapper(linkconfig.MinioConfig{
		Address:   hostname,
		Port:      apiPort.Int(),
		Accesskey: config.Username,
		Secretkey: config.Password,
		Bucket:    config.DefaultBucket,
	})
	if err != nil {
		return MinioContainer{}, fmt.Errorf("minio client: %w", err)
	}

	return MinioContainer{
		Container:     &genericContainer,
		ClientWrapper: wrapper,
		Hostname:      hostname,
		APIPort:       apiPort.Int(),
	}, nil
}
