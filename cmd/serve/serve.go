package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/proctor-go/cmd/setup"
	"github.com/tphakala/proctor-go/internal/analysis"
	"github.com/tphakala/proctor-go/internal/api"
	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/mqtt"
	"github.com/tphakala/proctor-go/internal/observability"
)

const (
	verdictQueueSize = 256
	sentryFlushWait  = 2 * time.Second
)

// Command creates the serve command, which runs the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long:  "Serve /analyze-face, /analyze-audio, /analyze-video and /analyze-audio-blob until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port of the HTTP API")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")
	cmd.Flags().BoolVar(&settings.MQTT.Enabled, "mqtt", viper.GetBool("mqtt.enabled"), "Publish verdicts to the MQTT broker")

	for key, name := range map[string]string{
		"webserver.port":    "port",
		"telemetry.enabled": "telemetry",
		"telemetry.listen":  "listen",
		"mqtt.enabled":      "mqtt",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, settings.Version, settings.Sentry.Environment); err != nil {
			log.Warn("Sentry disabled", logger.Error(err))
		} else {
			defer errors.FlushSentry(sentryFlushWait)
		}
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	errors.AddErrorHook(m.ErrorHook())

	face, err := setup.NewFaceStack(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := face.Close(); err != nil {
			log.Warn("Failed to release face models", logger.Error(err))
		}
	}()

	audioAnalyzer, err := setup.NewAudioAnalyzer(settings)
	if err != nil {
		return err
	}

	opts := []analysis.Option{
		analysis.WithFrameSource(setup.NewVideoSampler(settings)),
		analysis.WithMetrics(m.Analyzer),
		analysis.WithBlobWindow(time.Duration(settings.Audio.BlobWindowSeconds * float64(time.Second))),
		analysis.WithVideoWorkers(settings.Vision.PoolSize()),
	}

	if settings.MQTT.Enabled {
		publisher, err := connectMQTT(ctx, settings, m)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, analysis.WithPublisher(publisher, verdictQueueSize))
	}

	service, err := analysis.NewService(face.Analyzer, audioAnalyzer, opts...)
	if err != nil {
		return err
	}
	// Runs after the server stopped accepting requests, before the publisher closes
	defer service.Close()

	server, err := api.New(settings, service, api.WithHTTPMetrics(m.HTTP))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(&settings.Telemetry, m)
		if err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	g.Go(func() error {
		rotateLogsOnHangup(gctx, log)
		return nil
	})

	log.Info("Proctor API started",
		logger.String("address", settings.WebServer.Address()),
		logger.Bool("telemetry", settings.Telemetry.Enabled),
		logger.Bool("mqtt", settings.MQTT.Enabled))

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Proctor API stopped")
	return nil
}

// connectMQTT connects to the broker. A broker that is down at startup is
// not fatal; paho keeps reconnecting in the background.
func connectMQTT(ctx context.Context, settings *conf.Settings, m *observability.Metrics) (*mqtt.Publisher, error) {
	log := logger.Global().Module("serve")

	client, err := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT, settings.Main.Name), m.MQTT)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		log.Warn("MQTT broker unreachable, verdicts will be dropped until it is back",
			logger.String("broker", settings.MQTT.Broker),
			logger.Error(err))
	}
	return mqtt.NewPublisher(client, settings.MQTT.Topic, settings.Main.Name, m.MQTT), nil
}

// rotateLogsOnHangup reopens log files on SIGHUP so logrotate can move them
func rotateLogsOnHangup(ctx context.Context, log logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := logger.Global().Rotate(); err != nil {
				log.Warn("Log rotation failed", logger.Error(err))
				continue
			}
			log.Info("Log files rotated")
		}
	}
}
