package cli

import (
	"os"
	"strconv"

	"github.com/absmach/federator/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	campaignName     string
	participants     []string
	initialModelCID  string
	submissionPeriod uint64 = 3600
	minSubmissions   uint64 = 1
)

var fsdk sdk.SDK

func SetFederatorSDK(s sdk.SDK) {
	fsdk = s
}

func NewCampaignsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns [create|view|status|cancel]",
		Short: "Campaigns manager",
		Long:  `Create, view and cancel federated training campaigns.`,
	}

	createCmd := &cobra.Command{
		Use:   "create <total_rounds>",
		Short: "Create campaign",
		Long: `Create a campaign with a fixed round budget.

Examples:
  # Three rounds, quorum of two, one hour submission window
  federator-cli campaigns create 3 --participants=0xtrainer1,0xtrainer2,0xtrainer3 --min-submissions=2`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			rounds, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			c, err := fsdk.CreateCampaign(sdk.CampaignRequest{
				Name:                    campaignName,
				Participants:            participants,
				TotalRounds:             rounds,
				InitialModelCID:         initialModelCID,
				SubmissionPeriodSeconds: submissionPeriod,
				MinSubmissions:          minSubmissions,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, c)
		},
	}

	createCmd.Flags().StringVar(&campaignName, "name", "", "Campaign name (generated when empty)")
	createCmd.Flags().StringSliceVar(&participants, "participants", []string{}, "Trainer addresses allowed to submit (comma-separated)")
	createCmd.Flags().StringVar(&initialModelCID, "initial-model", "", "CID of the initial global model")
	createCmd.Flags().Uint64Var(&submissionPeriod, "submission-period", submissionPeriod, "Submission window per round in seconds")
	createCmd.Flags().Uint64Var(&minSubmissions, "min-submissions", minSubmissions, "Submissions needed to close a round early")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View campaign",
		Long:  `View campaign.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			c, err := fsdk.GetCampaign(id)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, c)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Campaign status",
		Long:  `View the active campaign status.`,
		Run: func(cmd *cobra.Command, _ []string) {
			s, err := fsdk.GetStatus()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel campaign",
		Long:  `Cancel the active campaign.`,
		Run: func(cmd *cobra.Command, _ []string) {
			receipt, err := fsdk.CancelCampaign()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, receipt)
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(statusCmd)
	cmd.AddCommand(cancelCmd)

	return cmd
}

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [submit|upload]",
		Short: "Models manager",
		Long:  `Submit model updates and upload model artifacts.`,
	}

	submitCmd := &cobra.Command{
		Use:   "submit <trainer> <cid>",
		Short: "Submit model",
		Long:  `Submit a trainer's model CID for the current round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			receipt, err := fsdk.SubmitModel(args[0], args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, receipt)
		},
	}

	uploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload artifact",
		Long:  `Upload a model artifact and print its CID.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			f, err := os.Open(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			defer f.Close()

			cid, err := fsdk.UploadArtifact(f)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, map[string]string{"cid": cid})
		},
	}

	cmd.AddCommand(submitCmd)
	cmd.AddCommand(uploadCmd)

	return cmd
}

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [advance|aggregate|state]",
		Short: "Rounds manager",
		Long:  `Advance rounds, trigger aggregation and inspect round state.`,
	}

	advanceCmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance round",
		Long:  `Attempt to close the submission window of the current round.`,
		Run: func(cmd *cobra.Command, _ []string) {
			receipt, err := fsdk.AdvanceRound()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, receipt)
		},
	}

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Trigger aggregation",
		Long:  `Dispatch the aggregation job for the current round.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := fsdk.TriggerAggregation(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "View read model",
		Long:  `View the coordinator's full read model.`,
		Run: func(cmd *cobra.Command, _ []string) {
			m, err := fsdk.GetReadModel()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, m)
		},
	}

	cmd.AddCommand(advanceCmd)
	cmd.AddCommand(aggregateCmd)
	cmd.AddCommand(stateCmd)

	return cmd
}
