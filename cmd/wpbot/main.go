package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/joaquindlz/wp-bot/internal/config"
	"github.com/joaquindlz/wp-bot/internal/constants"
	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/internal/privacy"
	"github.com/joaquindlz/wp-bot/internal/service"
	"github.com/joaquindlz/wp-bot/internal/tracing"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const serviceName = "wp-bot"

type options struct {
	mode    string
	verbose bool
	version bool
	args    []string
}

func main() {
	os.Exit(realMain(os.Args, os.Stdout, os.Stderr))
}

// realMain parses the command line, builds the configuration and runs the
// bridge. It returns the process exit status.
func realMain(argv []string, stdout, stderr io.Writer) int {
	program := "wpbot"
	if len(argv) > 0 {
		program = argv[0]
		argv = argv[1:]
	}

	opts, err := parseFlags(program, argv)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintln(stdout, config.Usage(program, models.ScopeAll))
		fmt.Fprintln(stdout, config.Usage(program, models.ScopeGroup))
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, config.Usage(program, models.ScopeAll))
		return 1
	}

	if opts.version {
		fmt.Fprintf(stdout, "wp-bot %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		return 0
	}

	mode, err := config.ParseMode(opts.mode)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	cfg, err := config.LoadConfig(mode, opts.args)
	if err != nil {
		var usageErr config.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "error: %v\n", usageErr)
			fmt.Fprintln(stderr, config.Usage(program, usageErr.Mode))
			return 1
		}
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logger := newLogger(stdout, isTerminal(stdout), cfg.LogLevel, opts.verbose)
	logBanner(logger, cfg, opts.verbose)

	err = run(context.Background(), cfg, logger, opts.verbose)
	if err != nil {
		apperrors.WrapLogger(logger).LogError(err, "wp-bot stopped")
	}
	return apperrors.ExitCode(err)
}

func parseFlags(program string, argv []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.mode, "mode", string(models.ScopeAll), "Forwarding scope: all or group")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging (includes unmasked chat and sender ids)")
	fs.BoolVar(&opts.version, "version", false, "Show version information")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	opts.args = fs.Args()
	return opts, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newLogger builds the process logger. Debug output is reserved for
// --verbose; LOG_LEVEL can only make the logger quieter than info.
func newLogger(out io.Writer, tty bool, level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if tty {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	switch {
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	case level != "":
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logger.SetLevel(logrus.InfoLevel)
			logger.Warnf("Invalid log level %q, defaulting to info", level)
			break
		}
		if parsed > logrus.InfoLevel {
			parsed = logrus.InfoLevel
		}
		logger.SetLevel(parsed)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

func logBanner(logger *logrus.Logger, cfg *models.Config, verbose bool) {
	token := "[NOT SET]"
	if cfg.HasAuthToken() {
		token = "[CONFIGURED]"
	}

	fields := logrus.Fields{
		"version":      Version,
		"commit":       GitCommit,
		"api_endpoint": cfg.APIEndpoint,
		"auth_token":   token,
		"session_path": cfg.Paths.SessionDir,
		"mode":         string(cfg.Mode),
	}
	if cfg.IsGroupMode() {
		fields["target_group"] = cfg.TargetGroupName
	}
	logger.WithFields(fields).Info("Starting wp-bot")

	if verbose {
		logger.Info("Verbose logging enabled - chat and sender ids will be logged unmasked")
	}
}

// run wires the bridge together and blocks until a termination signal or a
// fatal session condition
func run(ctx context.Context, cfg *models.Config, logger *logrus.Logger, verbose bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recorder := service.NewStateRecorder(cfg.Paths, logger)
	recorder.MarkStarted()

	tracingManager := tracing.NewTracingManager(cfg.Tracing, serviceName, Version, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	client := whatsapp.NewClient(whatsapp.ClientConfig{
		SessionDir:     cfg.Paths.SessionDir,
		InitAttempts:   cfg.Session.InitAttempts,
		InitialBackoff: time.Duration(cfg.Session.InitialBackoffMs) * time.Millisecond,
	}, logger)

	router := service.NewRouter(service.RouterOptions{
		Config:     cfg,
		Client:     client,
		Store:      recorder,
		Renderer:   whatsapp.NewTerminalRenderer(os.Stdout),
		Dispatcher: service.NewForwarder(cfg, logger),
		Logger:     logger,
		Masker:     privacy.NewMasker(verbose),
	})
	coordinator := service.NewShutdownCoordinator(router, client, recorder, logger)

	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	if cfg.Server.HealthAddr != "" {
		server := NewServer(cfg.Server.HealthAddr, router, logger)
		go func() {
			if err := server.Start(); err != nil {
				serverErrCh <- fmt.Errorf("status server error: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warnf("Failed to shutdown status server: %v", err)
			}
		}()
	}

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	if err := client.Initialize(ctx); err != nil {
		initErr := apperrors.NewSessionInitError(err)
		coordinator.Abort(ctx, initErr)
		return initErr
	}

	select {
	case sig := <-signals:
		go func() {
			for sig := range signals {
				coordinator.Shutdown(ctx, sig.String())
			}
		}()
		coordinator.Shutdown(ctx, sig.String())
		return nil

	case err := <-router.Fatal():
		coordinator.Abort(ctx, err)
		return err

	case err := <-serverErrCh:
		coordinator.Abort(ctx, err)
		return err
	}
}
