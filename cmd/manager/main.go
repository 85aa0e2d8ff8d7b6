// Command manager runs the fleet manager control loop: it reads cluster
// and cloud fleet state on a fixed cadence and reconciles fleet target
// capacity and node cordon state to projected demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/fleetctl/manager/pkg/actuator"
	v1alpha1 "github.com/fleetctl/manager/pkg/apis/config/v1alpha1"
	"github.com/fleetctl/manager/pkg/cloudfleet"
	"github.com/fleetctl/manager/pkg/cluster"
	"github.com/fleetctl/manager/pkg/controlloop"
	"github.com/fleetctl/manager/pkg/metrics"
	"github.com/fleetctl/manager/pkg/telemetry"
)

const apiCallTimeout = 30 * time.Second

type options struct {
	configPath         string
	kubeconfig         string
	live               bool
	metricsBindAddress string
	otelEndpoint       string
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "manager",
		Short: "Reconciles cloud fleet target capacity and node cordon state to cluster demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	addFlags(cmd.Flags(), opts)
	_ = cmd.MarkFlagRequired("config")

	goFlags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	klog.InitFlags(goFlags)
	cmd.Flags().AddGoFlagSet(goFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		klog.ErrorS(err, "manager exited with an error")
		os.Exit(1)
	}
}

// addFlags registers manager's command-line flags against fs.
func addFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVar(&opts.configPath, "config", "", "path to the manager configuration file (required)")
	fs.StringVar(&opts.kubeconfig, "kubeconfig", "", "path to a kubeconfig file; empty uses in-cluster configuration")
	fs.BoolVar(&opts.live, "live", false, "when false, actions are logged but never applied (dry-run)")
	fs.StringVar(&opts.metricsBindAddress, "metrics-bind-address", ":8080", "address the Prometheus metrics endpoint listens on")
	fs.StringVar(&opts.otelEndpoint, "otel-endpoint", "", "OTLP/gRPC collector endpoint; empty disables tracing")
}

func run(ctx context.Context, opts *options) error {
	cfg, err := v1alpha1.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	sectorKinds, err := controlloop.SectorKinds(cfg)
	if err != nil {
		return fmt.Errorf("deriving sector kinds: %w", err)
	}

	restConfig, err := buildRESTConfig(opts.kubeconfig)
	if err != nil {
		return fmt.Errorf("building kube client configuration: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("building kube clientset: %w", err)
	}

	awsSession, err := session.NewSession()
	if err != nil {
		return fmt.Errorf("building AWS session: %w", err)
	}
	ec2Client := ec2.New(awsSession)

	clusterReader := cluster.NewReader(clientset, cfg.ClusterName, sectorKinds, apiCallTimeout)
	fleetReader := cloudfleet.NewReader(ec2Client, apiCallTimeout)
	clusterActuator := cluster.NewActuator(clientset, apiCallTimeout)
	fleetActuator := cloudfleet.NewActuator(ec2Client, apiCallTimeout)
	act := actuator.New(clusterActuator, fleetActuator, opts.live)

	metrics.Register()
	metricsServer := &http.Server{Addr: opts.metricsBindAddress, Handler: metricsHandler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "metrics server exited")
		}
	}()
	defer func() { _ = metricsServer.Shutdown(context.Background()) }()

	tracerProvider, shutdownTracing, err := telemetry.NewTracerProvider(ctx, opts.otelEndpoint, "fleet-manager")
	if err != nil {
		return fmt.Errorf("building tracer provider: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	loop, err := controlloop.New(cfg, clusterReader, fleetReader, act,
		controlloop.WithTracer(tracerProvider.Tracer("fleet-manager")),
		controlloop.WithRecorder(metrics.Recorder{}),
	)
	if err != nil {
		return fmt.Errorf("building control loop: %w", err)
	}

	if metricsClient, err := metricsclientset.NewForConfig(restConfig); err != nil {
		klog.ErrorS(err, "metrics.k8s.io client unavailable, node utilization diagnostics disabled")
	} else {
		go logNodeUtilization(ctx, metricsClient, time.Duration(cfg.SleepIntervalSeconds)*time.Second)
	}

	klog.InfoS("starting control loop", "cluster", cfg.ClusterName, "live", opts.live, "sleepIntervalSeconds", cfg.SleepIntervalSeconds)
	return loop.Run(ctx)
}

func buildRESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		return rest.InClusterConfig()
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// logNodeUtilization periodically logs aggregate node CPU/memory usage
// reported by metrics-server, purely as an operational diagnostic: the
// capacity planner itself always sizes off the static Fleet Catalog, never
// off observed utilization (§4.2), so a metrics-server outage never
// affects planning.
func logNodeUtilization(ctx context.Context, client metricsclientset.Interface, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		list, err := client.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
		if err != nil {
			klog.V(2).ErrorS(err, "failed to list node metrics")
			continue
		}

		var cpuMilli, memBytes int64
		for _, nm := range list.Items {
			cpuMilli += nm.Usage.Cpu().MilliValue()
			memBytes += nm.Usage.Memory().Value()
		}
		klog.V(2).InfoS("observed node utilization", "nodes", len(list.Items), "cpuMilli", cpuMilli, "memBytes", memBytes)
	}
}
