// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/cobasket/internal/config"
)

const (
	// DefaultNeo4jImage is the Neo4j community image used by integration tests.
	DefaultNeo4jImage = "neo4j:5-community"

	// DefaultNeo4jBoltPort is the Bolt protocol port.
	DefaultNeo4jBoltPort = "7687"

	// DefaultNeo4jPassword is the password set through NEO4J_AUTH.
	DefaultNeo4jPassword = "cobasket-test"
)

// Neo4jContainer is a running Neo4j server.
type Neo4jContainer struct {
	testcontainers.Container
	URI      string
	Username string
	Password string
}

// StoreConfig returns a store configuration pointing at the container.
func (c *Neo4jContainer) StoreConfig() *config.StoreConfig {
	return &config.StoreConfig{
		Backend: config.BackendNeo4j,
		Neo4j: config.Neo4jConfig{
			URI:       c.URI,
			Username:  c.Username,
			Password:  c.Password,
			BatchSize: 100,
		},
	}
}

// Neo4jOption configures the Neo4j container.
type Neo4jOption func(*neo4jConfig)

type neo4jConfig struct {
	image        string
	password     string
	startTimeout time.Duration
}

// WithNeo4jImage sets a custom Neo4j image.
func WithNeo4jImage(image string) Neo4jOption {
	return func(c *neo4jConfig) {
		c.image = image
	}
}

// WithNeo4jStartTimeout sets how long to wait for Bolt to accept connections.
func WithNeo4jStartTimeout(timeout time.Duration) Neo4jOption {
	return func(c *neo4jConfig) {
		c.startTimeout = timeout
	}
}

// NewNeo4jContainer starts a Neo4j server and waits until Bolt is listening.
//
//	neo, err := testinfra.NewNeo4jContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, neo)
//	store, err := graph.Open(ctx, neo.StoreConfig(), zerolog.Nop())
func NewNeo4jContainer(ctx context.Context, opts ...Neo4jOption) (*Neo4jContainer, error) {
	cfg := &neo4jConfig{
		image:        DefaultNeo4jImage,
		password:     DefaultNeo4jPassword,
		startTimeout: 120 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultNeo4jBoltPort + "/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/" + cfg.password,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultNeo4jBoltPort+"/tcp"),
			wait.ForLog("Started."),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultNeo4jBoltPort+"/tcp")
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &Neo4jContainer{
		Container: container,
		URI:       fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Username:  "neo4j",
		Password:  cfg.password,
	}, nil
}
