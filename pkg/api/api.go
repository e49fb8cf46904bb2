package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
)

const (
	ContentType     = "application/json"
	ContentTypeCBOR = "application/cbor"
)

func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeError maps guard violations to client errors. They are surfaced
// verbatim as typed rejection reasons and never retried server-side.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, campaign.ErrUnauthorized):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, campaign.ErrNoCampaign):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, campaign.ErrAlreadySubmitted),
		errors.Is(err, campaign.ErrCampaignActive):
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, campaign.ErrWrongPhase),
		errors.Is(err, campaign.ErrDeadlineExceeded),
		errors.Is(err, campaign.ErrQuorumNotMet):
		w.WriteHeader(http.StatusUnprocessableEntity)
	case errors.Is(err, campaign.ErrInvalidParams),
		errors.Is(err, apiutil.ErrValidation):
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
