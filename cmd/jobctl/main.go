// jobctl is the command-line client for managing jobs on the cluster.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"jobctl/internal/config"
	"jobctl/internal/gateway"
	"jobctl/internal/job"
	"jobctl/internal/minicluster"
	"jobctl/internal/observability"
	"jobctl/internal/respool"
)

const usage = `Usage: jobctl <command> [flags]

Commands:
  create       create a job from a spec file
  start        start a job or a range of its pods
  stop         stop a job or a range of its pods
  restart      restart a job, batch by batch
  delete       delete a job
  status       print job status
  pods         list the job's pods
  events       print events of one pod
  wait         wait for a job, workflow, or terminal state
  minicluster  manage the local test cluster (setup|teardown)
`

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("no command given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := args[0], args[1:]
	if cmd == "minicluster" {
		return runMinicluster(ctx, args)
	}

	cfg := config.LoadClientConfig()

	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, metricsHandler)
	}

	client, err := gateway.New(cfg, metrics)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := job.Options{
		WaitAttempts:    cfg.MaxWaitAttempts,
		WaitInterval:    cfg.WaitInterval,
		ConflictBackoff: cfg.ConflictBackoff,
		Metrics:         metrics,
	}

	switch cmd {
	case "create":
		return runCreate(ctx, client, opts, args)
	case "start":
		return runStart(ctx, client, opts, args)
	case "stop":
		return runStop(ctx, client, opts, args)
	case "restart":
		return runRestart(ctx, client, opts, args)
	case "delete":
		return runDelete(ctx, client, opts, args)
	case "status":
		return runStatus(ctx, client, opts, args)
	case "pods":
		return runPods(ctx, client, opts, args)
	case "events":
		return runEvents(ctx, client, opts, args)
	case "wait":
		return runWait(ctx, client, opts, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// serveMetrics exposes the Prometheus endpoint in the background for the
// lifetime of the process. Long waits are the only commands that live long
// enough to be scraped.
func serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting metrics server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics server failed", "error", err)
		}
	}()
}

func runCreate(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	specPath := fs.String("spec", "", "path to a job spec JSON file (required)")
	poolPath := fs.String("respool", "/default", "resource pool path, created if missing")
	wait := fs.Bool("wait", false, "wait for the job to reach RUNNING")
	fs.Parse(args)

	if *specPath == "" {
		return errors.New("create: -spec is required")
	}
	spec, err := loadSpec(*specPath)
	if err != nil {
		return err
	}

	pool := respool.New(client, poolSpec(*poolPath))
	respoolID, err := pool.EnsureExists(ctx)
	if err != nil {
		return err
	}
	spec.RespoolID = respoolID

	ctrl := job.New(client, spec, opts)
	if err := ctrl.Create(ctx); err != nil {
		return err
	}
	fmt.Println(ctrl.ID())

	if *wait {
		_, err = ctrl.WaitForState(ctx, "RUNNING", "FAILED")
		return err
	}
	return nil
}

func runStart(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	version := fs.String("version", "", "pin an exact entity version, disabling conflict retry")
	rangesArg := fs.String("ranges", "", "instance ranges like 0-2,5-6; end index exclusive")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	ranges, err := parseRanges(*rangesArg)
	if err != nil {
		return err
	}
	_, err = ctrl.Start(ctx, ranges, *version)
	return err
}

func runStop(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	version := fs.String("version", "", "pin an exact entity version, disabling conflict retry")
	rangesArg := fs.String("ranges", "", "instance ranges like 0-2,5-6; end index exclusive")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	ranges, err := parseRanges(*rangesArg)
	if err != nil {
		return err
	}
	_, err = ctrl.Stop(ctx, ranges, *version)
	return err
}

func runRestart(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("restart", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	version := fs.String("version", "", "pin an exact entity version, disabling conflict retry")
	rangesArg := fs.String("ranges", "", "restrict restart to instance ranges like 0-2")
	batchSize := fs.Uint("batch-size", 0, "pods restarted per batch, 0 restarts all at once")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	ranges, err := parseRanges(*rangesArg)
	if err != nil {
		return err
	}
	_, err = ctrl.Restart(ctx, uint32(*batchSize), ranges, *version)
	return err
}

func runDelete(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	version := fs.String("version", "", "pin an exact entity version, disabling conflict retry")
	force := fs.Bool("force", false, "delete even if the job is running")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	return ctrl.Delete(ctx, *version, *force)
}

func runStatus(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	status, err := ctrl.GetStatus(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func runPods(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("pods", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	pods, err := ctrl.QueryPods(ctx)
	if err != nil {
		return err
	}
	for _, p := range pods {
		state := ""
		if p.Status != nil {
			state = job.ShortPodState(p.Status.State)
		}
		fmt.Printf("%s\t%s\n", p.Name, state)
	}
	return nil
}

func runEvents(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	instance := fs.Uint("instance", 0, "pod instance index")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}
	events, err := ctrl.GetPod(uint32(*instance)).GetEvents(ctx)
	if err != nil {
		return err
	}
	return printJSON(events)
}

func runWait(ctx context.Context, client *gateway.Client, opts job.Options, args []string) error {
	fs := flag.NewFlagSet("wait", flag.ExitOnError)
	jobID := fs.String("job", "", "job ID (required)")
	state := fs.String("state", "", "goal state short name, e.g. RUNNING")
	failed := fs.String("failed", "", "failure state short name that aborts the wait")
	workflow := fs.Bool("workflow", false, "wait on the workflow state instead of the job state")
	terminal := fs.Bool("terminal", false, "wait for any terminal job state")
	fs.Parse(args)

	ctrl, err := attach(ctx, client, *jobID, opts)
	if err != nil {
		return err
	}

	switch {
	case *terminal:
		out, err := ctrl.WaitForTerminated(ctx)
		if err != nil {
			return err
		}
		fmt.Println(out.LastState)
		return nil
	case *state == "":
		return errors.New("wait: -state or -terminal is required")
	case *workflow:
		_, err := ctrl.WaitForWorkflowState(ctx, *state, *failed)
		return err
	default:
		_, err := ctrl.WaitForState(ctx, *state, *failed)
		return err
	}
}

func runMinicluster(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("minicluster: expected setup or teardown")
	}

	cluster, err := minicluster.New(minicluster.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	defer cluster.Close()

	if err := cluster.Ready(ctx); err != nil {
		return fmt.Errorf("docker daemon not reachable: %w", err)
	}

	switch args[0] {
	case "setup":
		return cluster.Setup(ctx)
	case "teardown":
		return cluster.Teardown(ctx)
	default:
		return fmt.Errorf("minicluster: unknown subcommand %q", args[0])
	}
}

// attach builds a Controller for an existing job, seeding its spec snapshot
// and cached version from the service.
func attach(ctx context.Context, client *gateway.Client, jobID string, opts job.Options) (*job.Controller, error) {
	if jobID == "" {
		return nil, errors.New("-job is required")
	}
	return job.Attach(ctx, client, jobID, opts)
}

func loadSpec(path string) (*job.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec job.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse spec %s: %w", path, err)
	}
	return &spec, nil
}

// poolSpec splits a pool path into parent and leaf name.
func poolSpec(path string) *respool.Spec {
	trimmed := strings.Trim(path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return &respool.Spec{Name: trimmed[i+1:], Parent: "/" + trimmed[:i]}
	}
	return &respool.Spec{Name: trimmed}
}

// parseRanges parses "0-2,5-6" into half-open instance ranges. A bare index
// "3" means the single instance range 3-4.
func parseRanges(s string) ([]job.InstanceRange, error) {
	if s == "" {
		return nil, nil
	}

	var ranges []job.InstanceRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, found := strings.Cut(part, "-")
		f, err := strconv.ParseUint(from, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", part, err)
		}
		if !found {
			ranges = append(ranges, job.InstanceRange{From: uint32(f), To: uint32(f) + 1})
			continue
		}
		t, err := strconv.ParseUint(to, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", part, err)
		}
		if t <= f {
			return nil, fmt.Errorf("invalid range %q: end must be greater than start", part)
		}
		ranges = append(ranges, job.InstanceRange{From: uint32(f), To: uint32(t)})
	}
	return ranges, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
