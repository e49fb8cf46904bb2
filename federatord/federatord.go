// Package federatord wires and runs the coordinator as a daemon, for use by
// the coordinator binary and the CLI's embedded start command.
package federatord

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/coordinator/api"
	"github.com/absmach/federator/coordinator/middleware"
	"github.com/absmach/federator/ledger"
	"github.com/absmach/federator/pkg/aggregator"
	"github.com/absmach/federator/pkg/artifacts"
	"github.com/absmach/federator/pkg/mqtt"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const svcName = "coordinator"

type Config struct {
	LogLevel      string
	InstanceID    string
	OwnerAddress  string
	DataDir       string
	StagingDir    string
	IPFSURL       string
	AggregatorURL string
	CallbackURL   string
	HTTPTimeout   time.Duration
	MQTTAddress   string
	MQTTQoS       uint8
	MQTTTimeout   time.Duration
	StatusTopic   string
	Server        server.Config
	OTELURL       url.URL
	TraceRatio    float64
}

// StartCoordinator runs the coordinator until ctx is cancelled or a server
// error occurs.
func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	eventLog, err := ledger.NewBadgerLog(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open event log: %s", err.Error())
	}
	defer eventLog.Close()

	owner := campaign.Address(cfg.OwnerAddress)
	client, err := ledger.NewMachine(ctx, owner, eventLog, logger)
	if err != nil {
		return fmt.Errorf("failed to recover ledger state: %s", err.Error())
	}

	store := artifacts.NewIPFSStore(cfg.IPFSURL, cfg.HTTPTimeout)
	runner := aggregator.NewHTTPRunner(cfg.AggregatorURL, cfg.HTTPTimeout)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		pubsub, err = mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName+"-"+cfg.InstanceID, "", "", cfg.StatusTopic, cfg.MQTTTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
		}
	}

	projector := coordinator.NewProjector(client, logger)
	orch := coordinator.NewOrchestrator(client, store, runner, owner, cfg.StagingDir, cfg.CallbackURL, logger)
	hub := coordinator.NewHub(projector.Snapshot, logger)

	svc := coordinator.NewService(client, projector, orch, hub, store, pubsub, owner, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to ledger events: %s", err.Error())
	}
	defer func() {
		if err := svc.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down coordinator", slog.Any("error", err))
		}
	}()

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, hub, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	return nil
}
