package common

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/agentic-sandbox/podsnapshot/internal/config"
	"github.com/agentic-sandbox/podsnapshot/internal/gateway"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	runtimemetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

var (
	configFile  string
	envFile     string
	kubeconfig  string
	kubeContext string
	namespace   string
	timeout     time.Duration
	metricsAddr string
	zapOpts     zap.Options

	logger = ctrl.Log.WithName("podsnapshot")
)

// ExitError carries a non-zero exit code of a command-style operation whose
// message was already printed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// BindGlobalFlags registers the flags shared by every subcommand.
func BindGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file.")
	flags.StringVar(&envFile, "env-file", "", "Path to a dotenv file providing PODSNAPSHOT_* variables.")
	flags.StringVar(&kubeconfig, "kubeconfig", "", "Path to the kubeconfig file.")
	flags.StringVar(&kubeContext, "context", "", "The kubeconfig context to use.")
	flags.StringVarP(&namespace, "namespace", "n", "", "The namespace of the sandboxes and snapshots.")
	flags.DurationVar(&timeout, "timeout", snapshot.DefaultPodSnapshotTimeout,
		"How long to wait for the controller to process a checkpoint or restore.")
	flags.StringVar(&metricsAddr, "metrics-bind-address", "",
		"The address the metric endpoint binds to. The endpoint is disabled when empty.")

	goflags := flag.NewFlagSet("goflags", flag.ExitOnError)
	zapOpts.Development = true
	zapOpts.BindFlags(goflags)
	flags.AddGoFlagSet(goflags)
}

func SetupLogger() {
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
}

// LoadOptions builds the options of cmd from defaults, the config file, the
// environment and the flags, in increasing order of precedence.
func LoadOptions(cmd *cobra.Command) (*config.Options, error) {
	opts := config.NewOptions()
	if configFile != "" {
		if err := opts.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := opts.LoadEnv(envFile); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("namespace") {
		opts.Namespace = namespace
	}
	if flags.Changed("timeout") {
		opts.SetTimeout(timeout)
	}
	if flags.Changed("kubeconfig") {
		opts.Kubeconfig = kubeconfig
	}
	if flags.Changed("context") {
		opts.KubeContext = kubeContext
	}
	return opts, nil
}

func NewGateway(opts *config.Options) (gateway.Gateway, error) {
	cfg, err := gateway.BuildRESTConfig(opts.Kubeconfig, opts.KubeContext)
	if err != nil {
		return nil, err
	}
	return gateway.NewForConfig(cfg)
}

// SessionConfig converts opts for snapshot.Open.
func SessionConfig(opts *config.Options) snapshot.Config {
	return snapshot.Config{
		Namespace:          opts.Namespace,
		TemplateName:       opts.TemplateName,
		Labels:             opts.Labels,
		PodSnapshotTimeout: opts.PodSnapshotTimeout,
	}
}

// StartMetricsServer serves the controller-runtime registry until ctx is
// done. It does nothing when no address is configured.
func StartMetricsServer(ctx context.Context) {
	if metricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(runtimemetrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "failed to shut down metrics server")
		}
	}()

	go func() {
		logger.Info("metrics endpoint listening", "addr", metricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "metrics server stopped unexpectedly")
		}
	}()
}

// PrintResult writes res to the command's output streams and converts a
// failure into an ExitError.
func PrintResult(cmd *cobra.Command, res snapshot.Result) error {
	if res.Stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Stderr)
	}
	if !res.Succeeded() {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}
