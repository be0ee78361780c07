package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/adapters"
	"github.com/brettbedarf/resultfs/client"
	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/filesystem"
	"github.com/brettbedarf/resultfs/internal/metrics"
	"github.com/brettbedarf/resultfs/internal/util"
	"github.com/brettbedarf/resultfs/server"
	"github.com/brettbedarf/resultfs/session"
)

// options holds the command line flags
type options struct {
	configPath  string
	verbose     int
	umount      bool
	metricsAddr string
	serverHost  string
	serverPort  int
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "resultfs [mountpoint]",
		Short: "Browse and edit query results as files",
		Long: `resultfs mounts the result of a database query as a directory tree with
one directory per row and one file per column. Edits made through the
filesystem are sent back to the database on 'commit'.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	cmd.Flags().IntVarP(&opts.verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	cmd.Flags().BoolVarP(&opts.umount, "umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().StringVar(&opts.serverHost, "host", config.DefaultServerHost, "Host of the database front end")
	cmd.Flags().IntVar(&opts.serverPort, "port", config.DefaultServerPort, "Port of the database front end")
	return cmd, opts
}

// loadConfig layers defaults, the config file and explicitly set flags
func loadConfig(cmd *cobra.Command, args []string, opts *options) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if opts.configPath != "" {
		override, err := config.LoadConfigOverrideFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(override)
	}

	var flags config.ConfigOverride
	if cmd.Flags().Changed("verbose") {
		flags.LogLvl = &opts.verbose
	}
	if cmd.Flags().Changed("metrics-addr") {
		flags.MetricsAddr = &opts.metricsAddr
	}
	if cmd.Flags().Changed("host") {
		flags.ServerHost = &opts.serverHost
	}
	if cmd.Flags().Changed("port") {
		flags.ServerPort = &opts.serverPort
	}
	if len(args) > 0 {
		flags.MountPoint = &args[0]
	}
	cfg.Merge(&flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	cfg, err := loadConfig(cmd, args, opts)
	if err != nil {
		return err
	}

	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")
	logger.Info().Str("mnt", cfg.MountPoint).Str("server", cfg.WebSocketURL()).Msg("resultfs initializing")

	// Try unmount if requested
	if opts.umount && runtime.GOOS != "windows" {
		// we ignore error here if not already mounted
		exec.Command("fusermount", "-u", cfg.MountPoint).Run() // nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metrics.InitRegistry()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}
	fsMetrics := metrics.NewFSMetrics()

	registry := adapters.NewRegistry()
	adapters.RegisterBuiltins(registry)

	fs := filesystem.NewFS(cfg, registry, filesystem.WithMetrics(fsMetrics))
	uploader := client.NewHTTPUploader(nil, cfg.RestURL(client.BatchUpdateEndpoint))

	var (
		sess    *session.Session
		console *session.Console
	)
	socket := client.NewSocketClient(cfg.WebSocketURL(), cfg.ReconnectInterval, func(res *resultfs.Result) {
		sess.DeliverResult(res)
		console.PrintResult(res)
	})
	sess = session.New(fs, uploader, socket, session.WithMetrics(fsMetrics))
	console = session.NewConsole(sess, os.Stdin, os.Stdout)

	srv := server.New(cfg, fs)
	if err := srv.Serve(cfg.MountPoint); err != nil {
		return fmt.Errorf("failed to mount filesystem: %w", err)
	}
	logger.Info().Str("mountpoint", cfg.MountPoint).Str("session", sess.ID()).Msg("Filesystem mounted successfully")

	go func() {
		if err := socket.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Result channel stopped")
		}
	}()
	go func() {
		if err := console.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Console stopped")
			return
		}
		logger.Debug().Msg("Console input closed; serving until signal")
	}()

	<-ctx.Done()
	logger.Info().Msg("Received signal, unmounting filesystem")

	if err := srv.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
		return err
	}
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}

func main() {
	cmd, _ := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
