package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/n0madic/go-gradiogate/internal/config"
	"github.com/n0madic/go-gradiogate/internal/gradio"
	"github.com/n0madic/go-gradiogate/internal/logger"
	"github.com/n0madic/go-gradiogate/internal/metrics"
	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/proxy"
	"github.com/n0madic/go-gradiogate/internal/session"
	"github.com/n0madic/go-gradiogate/internal/upstream"
)

const shutdownTimeout = 5 * time.Second

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "gradiogate",
		Short:         "OpenAI-compatible gateway for Gradio Spaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")

	rootCmd.AddCommand(newServeCmd(), newModelsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	fs := cmd.Flags()
	fs.String("host", config.DefaultHost, "Bind host")
	fs.Int("port", config.DefaultPort, "Listen port")
	fs.Bool("verbose", false, "Log every request and backend call")
	fs.Bool("debug", false, "Dump inbound and backend HTTP traffic to stderr")
	fs.String("models-file", "", "YAML model registry replacing the built-in one")
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile})
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			printModels(reg)
			return nil
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if cfg.Debug {
		level = logger.LogLevelDebug
	}
	log, cleanup, err := logger.New(&logger.Config{
		Level:      level,
		LogDir:     cfg.Logging.Dir,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		FileOutput: cfg.Logging.FileOutput,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer cleanup()
	slog.SetDefault(log)

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	transport, err := gradio.NewTransport(cfg.ProxyURL())
	if err != nil {
		return err
	}
	connector := gradio.NewConnector(gradio.Options{
		Transport: transport,
		HubURL:    cfg.Backend.HubURL,
		Debug:     cfg.Debug,
	})

	recorder := metrics.Recorder{}
	cache := session.NewCache(session.WithObserver(recorder.ObserveCacheLookup))
	coord := upstream.NewCoordinator(reg, cache, connector.Connect, upstream.Options{
		MaxConcurrency: cfg.Backend.MaxConcurrency,
		Timeout:        cfg.Backend.Timeout,
		Verbose:        cfg.Verbose,
		Observer:       recorder,
	})

	srv := proxy.New(cfg, coord)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("gradiogate starting",
		"addr", cfg.Addr(),
		"models", reg.Len(),
		"proxy", cfg.ProxyURL() != "",
		"metrics", cfg.Metrics.Enabled,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func loadRegistry(cfg *config.Config) (*models.Registry, error) {
	if cfg.ModelsFile == "" {
		return models.Builtin(), nil
	}
	return models.LoadFile(cfg.ModelsFile)
}

func printModels(reg *models.Registry) {
	color.Blue("Models (%d):", reg.Len())
	for _, d := range reg.All() {
		fmt.Printf("  %-20s %s\n", color.GreenString(d.ID), d.EndpointRef)
		fmt.Printf("  %-20s flags=%s operation=%s\n", "", color.YellowString(d.Flags.String()), d.OperationName())
	}
}
