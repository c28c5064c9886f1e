package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-engine/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/metrics"
)

// Options controls the alarm-engine process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile overrides the file holding persisted alarm states.
	StateFile string
	// TreeFile overrides the alarm tree configuration file.
	TreeFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// metricsReadHeaderTimeout bounds header reads on the metrics endpoint.
const metricsReadHeaderTimeout = 5 * time.Second

// Run loads the alarm tree, starts the engine and serves it over gRPC until
// ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.Configure(settings.LogLevel, settings.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	ctx = logger.WithName(ctx, "alarm-engine")

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}

	if opts.TreeFile != "" {
		settings.TreeFile = opts.TreeFile
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	root, err := config.LoadTree(settings.TreeFile)
	if err != nil {
		return err
	}

	st, err := newStack(ctx, settings)
	if err != nil {
		return err
	}

	defer st.Close()

	if err = st.engine.Load(ctx, root); err != nil {
		return fmt.Errorf("load alarm tree: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterEngineServer(grpcServer, api.NewServer(st.engine))

	metricsServer := startMetrics(ctx, settings.MetricsAddress)

	logger.InfoKV(ctx, "Alarm engine listening",
		"listen_address", listenAddress,
		"metrics_address", settings.MetricsAddress,
		"tree_file", settings.TreeFile,
		"state_file", settings.StateFile,
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
			_ = metricsServer.Shutdown(shutdownCtx) //nolint:errcheck // Best effort on exit.

			cancel()
		}

		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// startMetrics serves /metrics on address. It returns nil when address is
// empty.
func startMetrics(ctx context.Context, address string) *http.Server {
	if address == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics server failed", "address", address, "error", err)
		}
	}()

	return srv
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
