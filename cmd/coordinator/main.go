package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/absmach/federator/federatord"
	"github.com/absmach/supermq/pkg/server"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	defHTTPPort   = "7070"
	envPrefixHTTP = "COORDINATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"COORDINATOR_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string        `env:"COORDINATOR_INSTANCE_ID"`
	OwnerAddress  string        `env:"COORDINATOR_OWNER_ADDRESS"  envDefault:"0xowner"`
	DataDir       string        `env:"COORDINATOR_DATA_DIR"       envDefault:"./data"`
	StagingDir    string        `env:"COORDINATOR_STAGING_DIR"    envDefault:"./staging"`
	IPFSURL       string        `env:"COORDINATOR_IPFS_URL"       envDefault:"http://localhost:5001"`
	AggregatorURL string        `env:"COORDINATOR_AGGREGATOR_URL" envDefault:"http://localhost:9090"`
	CallbackURL   string        `env:"COORDINATOR_CALLBACK_URL"   envDefault:"http://localhost:7070/callback"`
	HTTPTimeout   time.Duration `env:"COORDINATOR_HTTP_TIMEOUT"   envDefault:"30s"`
	MQTTAddress   string        `env:"COORDINATOR_MQTT_ADDRESS"`
	MQTTQoS       uint8         `env:"COORDINATOR_MQTT_QOS"       envDefault:"2"`
	MQTTTimeout   time.Duration `env:"COORDINATOR_MQTT_TIMEOUT"   envDefault:"30s"`
	StatusTopic   string        `env:"COORDINATOR_STATUS_TOPIC"   envDefault:"fl/coordinator/status"`
	OTELURL       url.URL       `env:"COORDINATOR_OTEL_URL"`
	TraceRatio    float64       `env:"COORDINATOR_TRACE_RATIO"    envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load HTTP server configuration : %s", err.Error())
	}

	dcfg := federatord.Config{
		LogLevel:      cfg.LogLevel,
		InstanceID:    cfg.InstanceID,
		OwnerAddress:  cfg.OwnerAddress,
		DataDir:       cfg.DataDir,
		StagingDir:    cfg.StagingDir,
		IPFSURL:       cfg.IPFSURL,
		AggregatorURL: cfg.AggregatorURL,
		CallbackURL:   cfg.CallbackURL,
		HTTPTimeout:   cfg.HTTPTimeout,
		MQTTAddress:   cfg.MQTTAddress,
		MQTTQoS:       cfg.MQTTQoS,
		MQTTTimeout:   cfg.MQTTTimeout,
		StatusTopic:   cfg.StatusTopic,
		Server:        httpServerConfig,
		OTELURL:       cfg.OTELURL,
		TraceRatio:    cfg.TraceRatio,
	}

	if err := federatord.StartCoordinator(ctx, cancel, dcfg); err != nil {
		log.Fatalf("coordinator exited with error: %s", err.Error())
	}
}
