package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type SDK interface {
	// CreateCampaign creates a new training campaign.
	//
	// example:
	//  req := sdk.CampaignRequest{
	//    Participants: []string{"0xtrainer1"},
	//    TotalRounds:  3,
	//  }
	//  campaign, _ := sdk.CreateCampaign(req)
	//  fmt.Println(campaign)
	CreateCampaign(req CampaignRequest) (Campaign, error)

	// GetCampaign gets a campaign by id.
	//
	// example:
	//  campaign, _ := sdk.GetCampaign(1)
	//  fmt.Println(campaign)
	GetCampaign(id uint64) (Campaign, error)

	// CancelCampaign cancels the active campaign.
	//
	// example:
	//  receipt, _ := sdk.CancelCampaign()
	//  fmt.Println(receipt)
	CancelCampaign() (TxReceipt, error)

	// SubmitModel submits a trainer's model for the current round.
	//
	// example:
	//  receipt, _ := sdk.SubmitModel("0xtrainer1", "bafy...")
	//  fmt.Println(receipt)
	SubmitModel(trainer, cid string) (TxReceipt, error)

	// AdvanceRound attempts to close the submission window.
	//
	// example:
	//  receipt, _ := sdk.AdvanceRound()
	//  fmt.Println(receipt)
	AdvanceRound() (TxReceipt, error)

	// TriggerAggregation dispatches the aggregation job for the current
	// round.
	//
	// example:
	//  _ = sdk.TriggerAggregation()
	TriggerAggregation() error

	// GetStatus gets the active campaign status.
	//
	// example:
	//  status, _ := sdk.GetStatus()
	//  fmt.Println(status)
	GetStatus() (Status, error)

	// GetReadModel gets the coordinator's full read model.
	//
	// example:
	//  model, _ := sdk.GetReadModel()
	//  fmt.Println(model)
	GetReadModel() (ReadModel, error)

	// UploadArtifact uploads a model artifact and returns its CID.
	//
	// example:
	//  cid, _ := sdk.UploadArtifact(file)
	//  fmt.Println(cid)
	UploadArtifact(data io.Reader) (string, error)
}

type fedSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &fedSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *fedSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, body)
	}

	return body, nil
}
