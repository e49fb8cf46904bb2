package main

import (
	"log"

	"github.com/absmach/federator"
	"github.com/absmach/federator/cli"
	"github.com/absmach/federator/federatord"
	"github.com/absmach/federator/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "federator-cli",
		Short: "Federator CLI",
		Long:  `Federator CLI is a command line interface for interacting with the campaign coordinator.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  federatord.DefCoordinatorURL,
				TLSVerification: federatord.DefTLSVerification,
			}
			if configPath != "" {
				cfg, err := federator.LoadConfig(configPath)
				if err != nil {
					log.Fatalf("failed to load config: %s", err.Error())
				}
				if cfg.Coordinator.URL != "" {
					sdkConf.CoordinatorURL = cfg.Coordinator.URL
				}
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetFederatorSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")

	rootCmd.AddCommand(cli.NewCampaignsCmd())
	rootCmd.AddCommand(cli.NewModelsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())
	rootCmd.AddCommand(federatord.NewCoordinatorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
