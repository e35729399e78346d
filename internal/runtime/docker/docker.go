// Package docker implements the runtime.Driver interface using the Docker
// API. Workloads run directly on the host Docker daemon.
package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"steward/internal/apperrors"
	"steward/internal/runtime"
)

// managedByLabel marks containers created by this service so operators can
// tell them apart from everything else on the daemon.
const managedByLabel = "steward"

// Driver implements runtime.Driver using Docker.
type Driver struct {
	client      *client.Client
	stopTimeout int
}

// NewDriver creates a new Docker driver and verifies the daemon is
// reachable. An unreachable daemon is a startup failure, not something to
// paper over with retries at construction time.
func NewDriver(ctx context.Context, cfg Config) (*Driver, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	if _, err := dockerClient.Ping(ctx); err != nil {
		_ = dockerClient.Close()
		return nil, fmt.Errorf("failed to ping docker daemon: %w", err)
	}

	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10
	}

	return &Driver{
		client:      dockerClient,
		stopTimeout: stopTimeout,
	}, nil
}

// CreateWorkload pulls the image if it is not present locally, then creates a
// container for it without starting it. The container carries a managed-by
// label and the given name; a name collision in the daemon surfaces as an
// error.
func (d *Driver) CreateWorkload(ctx context.Context, name, image string) (string, error) {
	if err := d.pullImageIfNeeded(ctx, image); err != nil {
		return "", apperrors.Driver("docker.pullImage", err)
	}

	containerConfig := &container.Config{
		Image: image,
		Labels: map[string]string{
			"managed-by": managedByLabel,
		},
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, &container.HostConfig{}, nil, nil, name)
	if err != nil {
		return "", apperrors.Driver("docker.createContainer", err)
	}

	return resp.ID, nil
}

// StartWorkload starts a created container.
func (d *Driver) StartWorkload(ctx context.Context, runtimeID string) error {
	if err := d.client.ContainerStart(ctx, runtimeID, container.StartOptions{}); err != nil {
		return apperrors.Driver("docker.startContainer", err)
	}
	return nil
}

// StopWorkload stops a container with the configured grace period.
func (d *Driver) StopWorkload(ctx context.Context, runtimeID string) error {
	stopTimeout := d.stopTimeout
	if err := d.client.ContainerStop(ctx, runtimeID, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		return apperrors.Driver("docker.stopContainer", err)
	}
	return nil
}

// RemoveWorkload force-removes a container.
func (d *Driver) RemoveWorkload(ctx context.Context, runtimeID string) error {
	if err := d.client.ContainerRemove(ctx, runtimeID, container.RemoveOptions{Force: true}); err != nil {
		return apperrors.Driver("docker.removeContainer", err)
	}
	return nil
}

// InspectStatus returns the daemon's state string for a container, e.g.
// "created", "running", or "exited".
func (d *Driver) InspectStatus(ctx context.Context, runtimeID string) (string, error) {
	inspect, err := d.client.ContainerInspect(ctx, runtimeID)
	if err != nil {
		return "", apperrors.Driver("docker.inspectContainer", err)
	}
	return inspect.State.Status, nil
}

// Ready checks if the Docker daemon is reachable and responsive.
func (d *Driver) Ready(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	return err
}

// Close releases the client connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) pullImageIfNeeded(ctx context.Context, imageName string) error {
	_, err := d.client.ImageInspect(ctx, imageName)
	if err == nil {
		return nil
	}

	reader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// Verify Driver implements runtime.Driver
var _ runtime.Driver = (*Driver)(nil)
