package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/opd-ai/tilecast/config"
	"github.com/opd-ai/tilecast/wire"
	"github.com/sirupsen/logrus"
)

type cliConfig struct {
	configPath string
	listen     string
	logLevel   string
}

func parseCLIFlags() *cliConfig {
	c := &cliConfig{}
	flag.StringVar(&c.configPath, "config", "", "YAML configuration file (default: built-in defaults)")
	flag.StringVar(&c.listen, "listen", "", "Override server.listen")
	flag.StringVar(&c.logLevel, "log-level", "", "Override log.level")
	flag.Parse()
	return c
}

func loadConfig(cli *cliConfig) (*config.Config, error) {
	cfg := config.Default()
	if cli.configPath != "" {
		loaded, err := config.Load(cli.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cli.listen != "" {
		cfg.Server.Listen = cli.listen
	}
	if cli.logLevel != "" {
		cfg.Log.Level = cli.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tilecast: %v\n", err)
		os.Exit(1)
	}
}

// schemaPath is where viewers fetch the wire schema, next to the stream.
func schemaPath(streamPath string) string {
	return path.Join(streamPath, "schema")
}

// schemaHandler serves the wire schema as a FileDescriptorSet.
func schemaHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set, err := wire.DescriptorSet()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "schemaHandler",
				"error":    err.Error(),
			}).Error("Failed to build wire schema")
			http.Error(w, "schema unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(set)
	})
}

func run() error {
	cfg, err := loadConfig(parseCLIFlags())
	if err != nil {
		return err
	}
	if err := cfg.ApplyLogging(); err != nil {
		return err
	}

	s, err := newStreamer(cfg, nil)
	if err != nil {
		return err
	}
	defer s.close()

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, s.broadcaster)
	mux.Handle(schemaPath(cfg.Server.Path), schemaHandler())
	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "run",
			"listen":   cfg.Server.Listen,
			"path":     cfg.Server.Path,
		}).Info("Serving viewers")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	source := newSyntheticSource(cfg.Frame.Width, cfg.Frame.Height)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		s.run(ctx, source.frames(ctx, cfg.Frame.FPS))
	}()

	var result error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			result = fmt.Errorf("http server: %w", err)
		}
	}
	stop()
	<-runDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && result == nil {
		result = err
	}
	return result
}
