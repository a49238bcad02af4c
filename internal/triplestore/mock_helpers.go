// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"context"
	"fmt"

	"github.com/Fedict/lod-link/internal/config"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type GraphDBContainer struct {
	mappedPort int
	Container  *testcontainers.Container
	Client     *GraphDbClient
}

// Spin up a local graphdb container and the associated client,
// creating the repository described by the ttl config
func NewGraphDBContainer(repositoryName string, configPath string) (GraphDBContainer, error) {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "khaller/graphdb-free",
		Name:         "linkGraphdbTestcontainer", // the name used for ryuk cleanup
		ExposedPorts: []string{"7200/tcp"},
		// graphdb prefixes log lines with the date so match with a regex
		WaitingFor: wait.ForLog(".*Started GraphDB in workbench mode at port 7200").AsRegexp(),
	}
	graphdbC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		Reuse:            true,
	})
	if err != nil {
		return GraphDBContainer{}, err
	}

	// 7200 is the default http endpoint
	port, err := graphdbC.MappedPort(ctx, "7200/tcp")
	if err != nil {
		return GraphDBContainer{}, err
	}
	host, err := graphdbC.Host(ctx)
	if err != nil {
		return GraphDBContainer{}, err
	}

	client, err := NewGraphDbClient(config.SparqlConfig{
		Endpoint:   fmt.Sprintf("http://%s:%s", host, port.Port()),
		Repository: repositoryName,
	}, nil)
	if err != nil {
		return GraphDBContainer{}, err
	}

	if err := client.CreateRepositoryIfNotExists(ctx, configPath); err != nil {
		return GraphDBContainer{}, fmt.Errorf("failed to create repository when initializing graphdb container: %w", err)
	}

	return GraphDBContainer{Client: client, mappedPort: port.Int(), Container: &graphdbC}, nil
}
