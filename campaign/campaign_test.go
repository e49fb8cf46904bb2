package campaign_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/absmach/federator/campaign"
)

func validConfig() campaign.Config {
	return campaign.Config{
		Name:             "mnist",
		Participants:     []campaign.Address{"0xtrainer1", "0xtrainer2", "0xtrainer3"},
		TotalRounds:      2,
		InitialModelCID:  "bafybeigdyrzt5initial",
		SubmissionPeriod: time.Hour,
		MinSubmissions:   2,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		desc   string
		mutate func(*campaign.Config)
		err    error
	}{
		{
			desc:   "valid config",
			mutate: func(*campaign.Config) {},
			err:    nil,
		},
		{
			desc: "no participants",
			mutate: func(c *campaign.Config) {
				c.Participants = nil
			},
			err: campaign.ErrInvalidParams,
		},
		{
			desc: "zero rounds",
			mutate: func(c *campaign.Config) {
				c.TotalRounds = 0
			},
			err: campaign.ErrInvalidParams,
		},
		{
			desc: "zero submission period",
			mutate: func(c *campaign.Config) {
				c.SubmissionPeriod = 0
			},
			err: campaign.ErrInvalidParams,
		},
		{
			desc: "zero quorum",
			mutate: func(c *campaign.Config) {
				c.MinSubmissions = 0
			},
			err: campaign.ErrInvalidParams,
		},
		{
			desc: "quorum above participant count",
			mutate: func(c *campaign.Config) {
				c.MinSubmissions = 4
			},
			err: campaign.ErrInvalidParams,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.err)
		})
	}
}

func TestAuthorized(t *testing.T) {
	c := campaign.Campaign{Participants: []campaign.Address{"0xtrainer1", "0xtrainer2"}}

	assert.True(t, c.Authorized("0xtrainer1"))
	assert.False(t, c.Authorized("0xstranger"))
}

// The Submission lifecycle state and the ModelSubmission record are distinct
// identifiers and must stay usable side by side.
func TestStateAndSubmissionRecord(t *testing.T) {
	sub := campaign.ModelSubmission{
		CID:        "bafybeigdyrzt5a",
		Trainer:    "0xtrainer1",
		Round:      1,
		CampaignID: 1,
		Valid:      true,
	}

	c := campaign.Campaign{State: campaign.Submission}
	assert.Equal(t, "Submission", c.State.String())
	assert.True(t, sub.Valid)
	assert.Equal(t, campaign.Address("0xtrainer1"), sub.Trainer)
}

func TestStateString(t *testing.T) {
	cases := []struct {
		state campaign.State
		want  string
	}{
		{campaign.Inactive, "Inactive"},
		{campaign.Submission, "Submission"},
		{campaign.Validation, "Validation"},
		{campaign.Aggregation, "Aggregation"},
		{campaign.State(42), "Unknown"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.state.String())
	}
}
