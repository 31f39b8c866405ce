package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rpggio/pagesmith/internal/config"
	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/generation"
	"github.com/rpggio/pagesmith/internal/mcp"
	"github.com/rpggio/pagesmith/internal/metrics"
	"github.com/rpggio/pagesmith/internal/notify"
	"github.com/rpggio/pagesmith/internal/sqlite"
	"github.com/rpggio/pagesmith/internal/transport"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.ModeStdio {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("PAGESMITH_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier, closeNotifier, err := newNotifier(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path, sqlite.WithNotifier(notifier), sqlite.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Interface-typed so that disabled components stay untyped nil.
	var (
		generator  editor.Generator
		collector  editor.MetricsCollector
		metricsMux http.Handler
	)
	if cfg.Generation.APIKey != "" {
		client, err := generation.NewClient(ctx, nil, generation.ClientConfig{
			APIKey:            cfg.Generation.APIKey,
			Model:             cfg.Generation.Model,
			Endpoint:          cfg.Generation.Endpoint,
			RequestsPerMinute: cfg.Generation.RequestsPerMinute,
			Timeout:           cfg.Generation.Timeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("create generation client: %w", err)
		}
		generator = generation.NewGenerator(client, logger)
	} else {
		logger.Warn("generation disabled: no API key configured")
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewCollector(reg)
		metricsMux = metrics.Handler(reg)
	}

	ed := editor.New(editor.Config{
		Users:        sqlite.NewUserRepository(db),
		Projects:     sqlite.NewProjectRepository(db),
		Pages:        sqlite.NewPageRepository(db),
		Activity:     activity.NewService(sqlite.NewActivityRepository(db), logger),
		Generator:    generator,
		Metrics:      collector,
		Logger:       logger,
		WriteTimeout: cfg.Editor.WriteTimeout,
	})
	defer ed.Close()

	mcpServer := mcp.NewServer(mcp.Config{
		Editor:  ed,
		Version: version,
		Logger:  logger,
	})

	if cfg.Transport.Mode == config.ModeStdio {
		return runStdioMode(ctx, logger, mcpServer)
	}
	router := transport.NewServer(transport.Options{
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		),
		RPC:     mcp.NewHandler(ed, logger),
		Metrics: metricsMux,
		Token:   cfg.Server.Token,
		Logger:  logger,
	})
	return runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port)
}

// newNotifier returns the Redis notifier when a URL is configured and the
// in-process one otherwise.
func newNotifier(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (notify.Notifier, func(), error) {
	if cfg.URL == "" {
		return notify.NewLocal(), func() {}, nil
	}
	n, err := notify.NewRedis(ctx, cfg.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("change notifications via redis", "channel", notify.DefaultChannel)
	return n, func() {
		if err := n.Close(); err != nil {
			logger.Warn("close redis notifier", "error", err)
		}
	}, nil
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "version", version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(logger, httpServer, errCh)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}
	if size <= keepLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
