package sdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/federator/pkg/sdk"
)

func newTestSDK(t *testing.T, handler http.HandlerFunc) sdk.SDK {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL})
}

func TestCreateCampaign(t *testing.T) {
	s := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/campaigns", r.URL.Path)

		var req sdk.CampaignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(3), req.TotalRounds)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sdk.Campaign{ID: 1, Name: req.Name, TotalRounds: req.TotalRounds})
	})

	c, err := s.CreateCampaign(sdk.CampaignRequest{
		Name:                    "mnist",
		Participants:            []string{"0xtrainer1"},
		TotalRounds:             3,
		SubmissionPeriodSeconds: 3600,
		MinSubmissions:          1,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ID)
	assert.Equal(t, "mnist", c.Name)
}

func TestSubmitModel(t *testing.T) {
	s := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xtrainer1", req["trainer"])

		json.NewEncoder(w).Encode(sdk.TxReceipt{ID: "tx-1", FirstSeq: 4, LastSeq: 4})
	})

	receipt, err := s.SubmitModel("0xtrainer1", "bafybeigdyrzt5a")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", receipt.ID)
	assert.Equal(t, uint64(4), receipt.LastSeq)
}

func TestSubmitModelRejected(t *testing.T) {
	s := newTestSDK(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "trainer already submitted a model this round"})
	})

	_, err := s.SubmitModel("0xtrainer1", "bafybeigdyrzt5a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestGetStatus(t *testing.T) {
	s := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/status", r.URL.Path)
		json.NewEncoder(w).Encode(sdk.Status{CampaignID: 1, Round: 2, State: "Submission"})
	})

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Round)
	assert.Equal(t, "Submission", status.State)
}

func TestGetReadModel(t *testing.T) {
	s := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/state", r.URL.Path)
		json.NewEncoder(w).Encode(sdk.ReadModel{
			Status:       sdk.Status{CampaignID: 1, State: "Aggregation"},
			Participants: []string{"0xtrainer1", "0xtrainer2"},
			Submissions:  map[string]string{"0xtrainer1": "bafybeigdyrzt5a"},
		})
	})

	model, err := s.GetReadModel()
	require.NoError(t, err)
	assert.Len(t, model.Participants, 2)
	assert.Equal(t, "bafybeigdyrzt5a", model.Submissions["0xtrainer1"])
}

func TestUploadArtifact(t *testing.T) {
	s := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/artifacts", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1024*1024))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"cid": "bafybeigdyrzt5up"})
	})

	cid, err := s.UploadArtifact(strings.NewReader("weights"))
	require.NoError(t, err)
	assert.Equal(t, "bafybeigdyrzt5up", cid)
}
