// Package dockerdb starts throwaway PostgreSQL containers through the Docker
// Engine API. The postgres repository tests and `cmd/seed -ephemeral` use it
// to get a real database without any local installation.
package dockerdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/jackc/pgx/v5"
)

// ErrUnavailable is returned when no Docker daemon can be reached.
var ErrUnavailable = errors.New("dockerdb: docker daemon unavailable")

const postgresPort = "5432/tcp"

// Postgres is a running Postgres container.
type Postgres struct {
	cli    *client.Client
	id     string
	dsn    string
	logger *slog.Logger
}

// Start pulls the image, starts a container with its port published on a
// random host port and blocks until the server accepts connections.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("dockerdb: pulling image: %w", err)
	}
	// Read everything to block until the pull is complete
	_, _ = io.Copy(io.Discard, reader)
	reader.Close()

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image: cfg.Image,
		Env: []string{
			"POSTGRES_USER=" + cfg.User,
			"POSTGRES_PASSWORD=" + cfg.Password,
			"POSTGRES_DB=" + cfg.Database,
		},
	}, &container.HostConfig{
		PublishAllPorts: true,
		Resources: container.Resources{
			Memory: cfg.MemoryLimit,
		},
	}, nil, nil, "")
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("dockerdb: creating container: %w", err)
	}

	pg := &Postgres{cli: cli, id: resp.ID, logger: logger}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		pg.Stop()
		return nil, fmt.Errorf("dockerdb: starting container: %w", err)
	}

	port, err := pg.hostPort(ctx)
	if err != nil {
		pg.Stop()
		return nil, err
	}
	pg.dsn = fmt.Sprintf("postgres://%s:%s@127.0.0.1:%s/%s?sslmode=disable",
		cfg.User, cfg.Password, port, cfg.Database)

	if err := pg.waitReady(ctx); err != nil {
		pg.Stop()
		return nil, err
	}

	logger.Info("postgres container ready", slog.String("id", shortID(resp.ID)), slog.String("port", port))
	return pg, nil
}

// DSN returns the connection string for the container's database.
func (p *Postgres) DSN() string {
	return p.dsn
}

// Stop force-removes the container and closes the docker client.
func (p *Postgres) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := p.cli.ContainerRemove(ctx, p.id, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil {
		p.logger.Error("failed to remove container", slog.String("id", shortID(p.id)), slog.String("error", err.Error()))
	}
	p.cli.Close()
}

// hostPort polls inspect until the published port shows up; the binding is
// filled in asynchronously after start.
func (p *Postgres) hostPort(ctx context.Context) (string, error) {
	for {
		inspect, err := p.cli.ContainerInspect(ctx, p.id)
		if err != nil {
			return "", fmt.Errorf("dockerdb: inspecting container: %w", err)
		}
		if inspect.NetworkSettings != nil {
			for _, binding := range inspect.NetworkSettings.Ports[postgresPort] {
				if binding.HostPort != "" {
					return binding.HostPort, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("dockerdb: waiting for port binding: %w", ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// waitReady retries a connection until a ping succeeds. During initdb the
// image runs a temporary server on the unix socket only, so a TCP ping
// only succeeds against the final server.
func (p *Postgres) waitReady(ctx context.Context) error {
	var lastErr error
	for {
		conn, err := pgx.Connect(ctx, p.dsn)
		if err == nil {
			err = conn.Ping(ctx)
			conn.Close(context.Background())
			if err == nil {
				return nil
			}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("dockerdb: postgres never became ready: %w", lastErr)
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
