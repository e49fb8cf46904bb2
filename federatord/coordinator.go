package federatord

import (
	"context"
	"time"

	"github.com/absmach/supermq/pkg/server"
	"github.com/spf13/cobra"
)

const (
	DefCoordinatorURL  = "http://localhost:7070"
	DefTLSVerification = false
)

var (
	logLevel      = "info"
	ownerAddress  = "0xowner"
	dataDir       = "./data"
	stagingDir    = "./staging"
	ipfsURL       = "http://localhost:5001"
	aggregatorURL = "http://localhost:9090"
	callbackURL   = DefCoordinatorURL + "/callback"
	mqttAddress   = ""
	httpPort      = "7070"
)

var coordinatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start coordinator",
		Long:  `Start coordinator.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := Config{
				LogLevel:      logLevel,
				OwnerAddress:  ownerAddress,
				DataDir:       dataDir,
				StagingDir:    stagingDir,
				IPFSURL:       ipfsURL,
				AggregatorURL: aggregatorURL,
				CallbackURL:   callbackURL,
				HTTPTimeout:   30 * time.Second,
				MQTTAddress:   mqttAddress,
				MQTTQoS:       2,
				MQTTTimeout:   30 * time.Second,
				StatusTopic:   "fl/coordinator/status",
				Server: server.Config{
					Port: httpPort,
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartCoordinator(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start coordinator: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewCoordinatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "coordinator [start]",
		Short: "Coordinator management",
		Long:  `Run the campaign coordinator.`,
	}

	for i := range coordinatorCmd {
		cmd.AddCommand(&coordinatorCmd[i])
	}

	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", logLevel, "Log level")
	cmd.PersistentFlags().StringVar(&ownerAddress, "owner", ownerAddress, "Campaign owner address")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", dataDir, "Event log directory")
	cmd.PersistentFlags().StringVar(&stagingDir, "staging-dir", stagingDir, "Aggregation staging directory")
	cmd.PersistentFlags().StringVar(&ipfsURL, "ipfs-url", ipfsURL, "IPFS API URL")
	cmd.PersistentFlags().StringVar(&aggregatorURL, "aggregator-url", aggregatorURL, "Aggregation service URL")
	cmd.PersistentFlags().StringVar(&callbackURL, "callback-url", callbackURL, "Aggregation callback URL")
	cmd.PersistentFlags().StringVar(&mqttAddress, "mqtt-address", mqttAddress, "MQTT broker address (empty disables notifications)")
	cmd.PersistentFlags().StringVarP(&httpPort, "port", "p", httpPort, "HTTP port")

	return &cmd
}
