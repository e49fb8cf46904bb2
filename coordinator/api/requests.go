package api

import (
	"time"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/pkg/aggregator"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type createCampaignReq struct {
	Name                    string   `json:"name,omitempty"`
	Participants            []string `json:"participants"`
	TotalRounds             uint64   `json:"total_rounds"`
	InitialModelCID         string   `json:"initial_model_cid"`
	SubmissionPeriodSeconds uint64   `json:"submission_period_seconds"`
	MinSubmissions          uint64   `json:"min_submissions"`
}

func (r createCampaignReq) validate() error {
	if len(r.Participants) == 0 {
		return apiutil.ErrMissingID
	}
	if r.TotalRounds == 0 || r.SubmissionPeriodSeconds == 0 {
		return campaign.ErrInvalidParams
	}

	return nil
}

func (r createCampaignReq) config() campaign.Config {
	participants := make([]campaign.Address, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, campaign.Address(p))
	}

	return campaign.Config{
		Name:             r.Name,
		Participants:     participants,
		TotalRounds:      r.TotalRounds,
		InitialModelCID:  r.InitialModelCID,
		SubmissionPeriod: time.Duration(r.SubmissionPeriodSeconds) * time.Second,
		MinSubmissions:   r.MinSubmissions,
	}
}

type entityReq struct {
	id uint64
}

func (r entityReq) validate() error {
	if r.id == 0 {
		return apiutil.ErrMissingID
	}

	return nil
}

type submitModelReq struct {
	Trainer string `json:"trainer"`
	CID     string `json:"cid"`
}

func (r submitModelReq) validate() error {
	if r.Trainer == "" || r.CID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type submitModelCBORReq struct {
	data []byte
}

func (r submitModelCBORReq) validate() error {
	if len(r.data) == 0 {
		return apiutil.ErrValidation
	}

	return nil
}

type callbackReq struct {
	aggregator.Callback
}

type uploadArtifactReq struct {
	data []byte
}

func (r uploadArtifactReq) validate() error {
	if len(r.data) == 0 {
		return apiutil.ErrValidation
	}

	return nil
}

type emptyReq struct{}
