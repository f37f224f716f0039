// Package minicluster runs a disposable local cluster in containers for
// integration testing. The job control core never touches this package;
// the CLI drives setup and teardown.
package minicluster

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"jobctl/internal/poll"
)

const managedByLabel = "jobctl-minicluster"

// component is one auxiliary service process of the local cluster.
type component struct {
	name  string
	image func(cfg Config) string
	env   []string
	cmd   []string
}

// Components start in this order: storage and coordination first, then the
// master processes that depend on them.
var components = []component{
	{name: "zookeeper", image: func(c Config) string { return c.ZookeeperImage }},
	{name: "cassandra", image: func(c Config) string { return c.CassandraImage }},
	{name: "resource-manager", image: func(c Config) string { return c.MasterImage }, cmd: []string{"resmgr"}},
	{name: "host-manager", image: func(c Config) string { return c.MasterImage }, cmd: []string{"hostmgr"}},
	{name: "placement-engine", image: func(c Config) string { return c.MasterImage }, cmd: []string{"placement"}},
	{name: "job-manager", image: func(c Config) string { return c.MasterImage }, cmd: []string{"jobmgr"}},
}

// Cluster manages the lifecycle of the local test cluster.
type Cluster struct {
	client *client.Client
	cfg    Config
}

// New connects to the local Docker daemon.
func New(cfg Config) (*Cluster, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Cluster{client: dockerClient, cfg: cfg.withDefaults()}, nil
}

// Ready checks that the Docker daemon is reachable.
func (c *Cluster) Ready(ctx context.Context) error {
	_, err := c.client.Ping(ctx)
	return err
}

// Setup starts all cluster components in order, waiting for each to report
// running before starting the next. Partial state from a failed setup is
// left in place for inspection; Teardown removes it.
func (c *Cluster) Setup(ctx context.Context) error {
	if err := c.ensureNetwork(ctx); err != nil {
		return err
	}

	for _, comp := range components {
		if err := c.startComponent(ctx, comp); err != nil {
			return fmt.Errorf("failed to start %s: %w", comp.name, err)
		}
	}

	slog.Info("minicluster ready", "components", len(components))
	return nil
}

// Teardown removes every container the cluster started, then the network.
func (c *Cluster) Teardown(ctx context.Context) error {
	containers, err := c.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", "managed-by="+managedByLabel),
			filters.Arg("label", "minicluster.prefix="+c.cfg.Prefix),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	const stopTimeout = 10
	for _, ctr := range containers {
		timeout := stopTimeout
		_ = c.client.ContainerStop(ctx, ctr.ID, container.StopOptions{Timeout: &timeout})
		_ = c.client.ContainerRemove(ctx, ctr.ID, container.RemoveOptions{Force: true})
		slog.Info("removed component", "container", ctr.Names)
	}

	if err := c.client.NetworkRemove(ctx, c.networkName()); err != nil {
		slog.Warn("failed to remove network", "network", c.networkName(), "error", err)
	}
	return nil
}

// Close releases the Docker client.
func (c *Cluster) Close() error {
	return c.client.Close()
}

func (c *Cluster) networkName() string {
	return c.cfg.Prefix + "-net"
}

func (c *Cluster) containerName(comp string) string {
	return c.cfg.Prefix + "-" + comp
}

func (c *Cluster) ensureNetwork(ctx context.Context) error {
	networks, err := c.client.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", c.networkName())),
	})
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}
	if len(networks) > 0 {
		return nil
	}

	_, err = c.client.NetworkCreate(ctx, c.networkName(), network.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create network: %w", err)
	}
	return nil
}

func (c *Cluster) startComponent(ctx context.Context, comp component) error {
	logger := slog.With("component", comp.name)
	imageName := comp.image(c.cfg)

	if err := c.pullImageIfNeeded(ctx, imageName); err != nil {
		return err
	}

	containerConfig := &container.Config{
		Image: imageName,
		Cmd:   comp.cmd,
		Env:   comp.env,
		Labels: map[string]string{
			"managed-by":            managedByLabel,
			"minicluster.prefix":    c.cfg.Prefix,
			"minicluster.component": comp.name,
		},
	}
	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode(c.networkName()),
	}

	resp, err := c.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, c.containerName(comp.name))
	if err != nil {
		return err
	}
	if err := c.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return err
	}
	logger.Info("component started", "container", resp.ID[:12])

	// Wait for the container to report running before starting dependents.
	_, err = poll.Until(ctx,
		poll.Config{MaxAttempts: c.cfg.ReadyAttempts, Interval: c.cfg.ReadyInterval},
		comp.name,
		func(ctx context.Context) (bool, error) {
			inspect, err := c.client.ContainerInspect(ctx, resp.ID)
			if err != nil {
				return false, err
			}
			if inspect.State != nil && inspect.State.Dead {
				return false, fmt.Errorf("%s died during startup", comp.name)
			}
			return inspect.State != nil && inspect.State.Running, nil
		})
	return err
}

func (c *Cluster) pullImageIfNeeded(ctx context.Context, imageName string) error {
	_, err := c.client.ImageInspect(ctx, imageName)
	if err == nil {
		return nil
	}

	reader, err := c.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}
