// Package graph wraps the Neo4j driver behind a small statement-execution
// client. Every statement is parameterized; results come back as row maps.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
)

// Client executes parameterized Cypher against the shared graph store.
type Client struct {
	driver neo4j.DriverWithContext
	log    zerolog.Logger
}

// Config carries connection settings for the graph store.
type Config struct {
	URI      string
	User     string
	Password string
}

// NewClient connects to Neo4j and verifies connectivity before returning.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j unreachable at %s: %w", cfg.URI, err)
	}
	return &Client{driver: driver, log: log}, nil
}

// Read runs a read statement and returns its rows as maps keyed by alias.
func (c *Client) Read(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return c.run(ctx, neo4j.AccessModeRead, cypher, params)
}

// Write runs a write statement and returns its rows as maps keyed by alias.
func (c *Client) Write(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return c.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (c *Client) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("graph statement failed: %w", err)
	}

	var rows []map[string]interface{}
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph result: %w", err)
	}
	return rows, nil
}

// HealthPing implements health.HealthPinger with a trivial read.
func (c *Client) HealthPing(ctx context.Context) error {
	_, err := c.Read(ctx, "RETURN 1 AS ok", nil)
	return err
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
