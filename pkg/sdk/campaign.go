package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	campaignsEndpoint = "/campaigns"
	modelsEndpoint    = "/models"
	roundsEndpoint    = "/rounds"
	artifactsEndpoint = "/artifacts"
	stateEndpoint     = "/state"
)

type Campaign struct {
	ID                 uint64    `json:"id"`
	Name               string    `json:"name,omitempty"`
	State              uint8     `json:"state"`
	GlobalModelCID     string    `json:"global_model_cid"`
	CurrentRound       uint64    `json:"current_round"`
	TotalRounds        uint64    `json:"total_rounds"`
	Participants       []string  `json:"participants"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
	MinSubmissions     uint64    `json:"min_submissions"`
	SubmissionCounter  uint64    `json:"submission_counter"`
	CreatedAt          time.Time `json:"created_at"`
}

type CampaignRequest struct {
	Name                    string   `json:"name,omitempty"`
	Participants            []string `json:"participants"`
	TotalRounds             uint64   `json:"total_rounds"`
	InitialModelCID         string   `json:"initial_model_cid"`
	SubmissionPeriodSeconds uint64   `json:"submission_period_seconds"`
	MinSubmissions          uint64   `json:"min_submissions"`
}

type TxReceipt struct {
	ID       string `json:"id"`
	FirstSeq uint64 `json:"first_seq"`
	LastSeq  uint64 `json:"last_seq"`
}

type Status struct {
	CampaignID     uint64 `json:"campaign_id"`
	CampaignName   string `json:"campaign_name,omitempty"`
	Round          uint64 `json:"round"`
	GlobalModelCID string `json:"global_model_cid"`
	State          string `json:"state"`
	TotalRounds    uint64 `json:"total_rounds"`
}

type StateChange struct {
	CampaignID uint64    `json:"campaign_id"`
	NewState   string    `json:"new_state"`
	At         time.Time `json:"at"`
}

type ModelChange struct {
	CampaignID uint64    `json:"campaign_id"`
	Round      uint64    `json:"round"`
	CID        string    `json:"cid"`
	At         time.Time `json:"at"`
}

type ReadModel struct {
	Status       Status            `json:"status"`
	StateHistory []StateChange     `json:"state_history"`
	ModelHistory []ModelChange     `json:"model_history"`
	Participants []string          `json:"participants"`
	Submissions  map[string]string `json:"submissions"`
}

func (sdk *fedSDK) CreateCampaign(req CampaignRequest) (Campaign, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Campaign{}, err
	}

	url := sdk.coordinatorURL + campaignsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return Campaign{}, err
	}

	var c Campaign
	if err := json.Unmarshal(body, &c); err != nil {
		return Campaign{}, err
	}

	return c, nil
}

func (sdk *fedSDK) GetCampaign(id uint64) (Campaign, error) {
	url := fmt.Sprintf("%s%s/%d", sdk.coordinatorURL, campaignsEndpoint, id)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Campaign{}, err
	}

	var c Campaign
	if err := json.Unmarshal(body, &c); err != nil {
		return Campaign{}, err
	}

	return c, nil
}

func (sdk *fedSDK) CancelCampaign() (TxReceipt, error) {
	url := sdk.coordinatorURL + campaignsEndpoint + "/cancel"

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return TxReceipt{}, err
	}

	var r TxReceipt
	if err := json.Unmarshal(body, &r); err != nil {
		return TxReceipt{}, err
	}

	return r, nil
}

func (sdk *fedSDK) SubmitModel(trainer, cid string) (TxReceipt, error) {
	data, err := json.Marshal(map[string]string{
		"trainer": trainer,
		"cid":     cid,
	})
	if err != nil {
		return TxReceipt{}, err
	}

	url := sdk.coordinatorURL + modelsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusOK)
	if err != nil {
		return TxReceipt{}, err
	}

	var r TxReceipt
	if err := json.Unmarshal(body, &r); err != nil {
		return TxReceipt{}, err
	}

	return r, nil
}

func (sdk *fedSDK) AdvanceRound() (TxReceipt, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/advance"

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return TxReceipt{}, err
	}

	var r TxReceipt
	if err := json.Unmarshal(body, &r); err != nil {
		return TxReceipt{}, err
	}

	return r, nil
}

func (sdk *fedSDK) TriggerAggregation() error {
	url := sdk.coordinatorURL + roundsEndpoint + "/aggregate"

	if _, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK); err != nil {
		return err
	}

	return nil
}

func (sdk *fedSDK) GetStatus() (Status, error) {
	url := sdk.coordinatorURL + campaignsEndpoint + "/status"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *fedSDK) GetReadModel() (ReadModel, error) {
	url := sdk.coordinatorURL + stateEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return ReadModel{}, err
	}

	var m ReadModel
	if err := json.Unmarshal(body, &m); err != nil {
		return ReadModel{}, err
	}

	return m, nil
}

func (sdk *fedSDK) UploadArtifact(data io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "artifact")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := sdk.coordinatorURL + artifactsEndpoint
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := sdk.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, body)
	}

	var uploaded struct {
		CID string `json:"cid"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", err
	}

	return uploaded.CID, nil
}
