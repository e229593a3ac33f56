//go:build container

// Package testhelpers starts throwaway Redis, PostgreSQL and MongoDB
// containers for integration tests. Tests using it carry the "container"
// build tag and need a reachable Docker daemon:
//
//	go test -tags container ./...
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 2 * time.Minute

func start(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s: %v", req.Image, err)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host of %s: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("port of %s: %v", req.Image, err)
	}
	return host, mapped.Port()
}

// StartRedis returns the host:port of a fresh Redis server.
func StartRedis(t *testing.T) string {
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379/tcp")
	return host + ":" + port
}

// StartPostgres returns a DSN for an empty PostgreSQL database.
func StartPostgres(t *testing.T) string {
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "campus",
			"POSTGRES_PASSWORD": "campus",
			"POSTGRES_DB":       "campus",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}, "5432/tcp")
	return fmt.Sprintf("host=%s port=%s user=campus password=campus dbname=campus sslmode=disable", host, port)
}

// StartMongo returns the URI of a fresh MongoDB server.
func StartMongo(t *testing.T) string {
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}, "27017/tcp")
	return fmt.Sprintf("mongodb://%s:%s", host, port)
}
