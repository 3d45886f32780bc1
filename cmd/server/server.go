package main

import (
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	c "github.com/quesurifn/ics-calendar-relay/calendar"
	h "github.com/quesurifn/ics-calendar-relay/handlers"
	"github.com/quesurifn/ics-calendar-relay/pkg/certs"
	"github.com/quesurifn/ics-calendar-relay/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg       *config.Config
	appConfig = defaultAppConfig()
)

var serverCmd = &cobra.Command{
	Use:           "calendar-relay",
	Short:         "Serve calendar feeds without their cancelled events",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func runServer(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(appConfig.Debug)
	if err != nil {
		return err
	}
	defer func() {
		err := logger.Sync()
		if err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
			os.Stderr.WriteString(err.Error() + "\n")
		}
	}()

	if appConfig.TLS.Probe {
		certs.InitEnv(logger)
	}

	if appConfig.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         appConfig.SentryDSN,
			Environment: appConfig.Env,
		})
		if err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	cal := c.New(logger, c.Options{
		BaseURL:   appConfig.Upstream.BaseURL,
		Path:      appConfig.Upstream.Path,
		Scope:     appConfig.Upstream.Scope,
		UserAgent: appConfig.Upstream.UserAgent,
		Timeout:   appConfig.Upstream.Timeout,
	})
	handlers := h.Handlers{
		Logger:   logger,
		Calendar: cal,
	}
	app := handlers.App(appConfig.AppName)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(appConfig.Host, appConfig.Port)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	logger.Info("Starting...",
		zap.String("addr", addr),
		zap.String("env", appConfig.Env),
		zap.String("upstream", appConfig.Upstream.BaseURL),
	)

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func init() {
	cfg = config.New(configSettings())

	flags := serverCmd.PersistentFlags()
	flags.StringVarP(&appConfig.Port, "port", "p", appConfig.Port, "app server port")
	flags.StringVar(&appConfig.Host, "host", appConfig.Host, "interface to listen on")
	flags.BoolVarP(&appConfig.Debug, "debug", "d", appConfig.Debug, "Debug Mode")
	flags.StringVar(&appConfig.Upstream.BaseURL, "upstream", "", "upstream calendar service base URL")

	serverCmd.AddCommand(&cobra.Command{
		Use:           "serve",
		Short:         "Run the calendar relay (default)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	})
	serverCmd.AddCommand(newFilterCmd())
}

func main() {
	if err := cfg.Load(&appConfig, "config.yml"); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(-1)
	}

	if err := serverCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(-1)
	}
}
