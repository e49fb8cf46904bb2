package api

import (
	"bytes"
	"context"
	"errors"

	"github.com/absmach/federator/campaign"
	"github.com/absmach/federator/coordinator"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func createCampaignEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(createCampaignReq)
		if !ok {
			return campaignResponse{}, errors.Join(apiutil.ErrValidation, campaign.ErrInvalidParams)
		}
		if err := req.validate(); err != nil {
			return campaignResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		c, err := svc.CreateCampaign(ctx, req.config())
		if err != nil {
			return campaignResponse{}, err
		}

		return campaignResponse{
			Campaign: c,
			created:  true,
		}, nil
	}
}

func getCampaignEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return campaignResponse{}, errors.Join(apiutil.ErrValidation, campaign.ErrInvalidParams)
		}
		if err := req.validate(); err != nil {
			return campaignResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		c, err := svc.GetCampaign(ctx, req.id)
		if err != nil {
			return campaignResponse{}, err
		}

		return campaignResponse{
			Campaign: c,
		}, nil
	}
}

func cancelCampaignEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		receipt, err := svc.CancelCampaign(ctx)
		if err != nil {
			return receiptResponse{}, err
		}

		return receiptResponse{
			TxReceipt: receipt,
		}, nil
	}
}

func submitModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(submitModelReq)
		if !ok {
			return receiptResponse{}, errors.Join(apiutil.ErrValidation, campaign.ErrInvalidParams)
		}
		if err := req.validate(); err != nil {
			return receiptResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		receipt, err := svc.SubmitModel(ctx, campaign.Address(req.Trainer), req.CID)
		if err != nil {
			return receiptResponse{}, err
		}

		return receiptResponse{
			TxReceipt: receipt,
		}, nil
	}
}

func submitModelCBOREndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(submitModelCBORReq)
		if !ok {
			return receiptResponse{}, errors.Join(apiutil.ErrValidation, campaign.ErrInvalidParams)
		}
		if err := req.validate(); err != nil {
			return receiptResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		receipt, err := svc.SubmitModelCBOR(ctx, req.data)
		if err != nil {
			return receiptResponse{}, err
		}

		return receiptResponse{
			TxReceipt: receipt,
		}, nil
	}
}

func advanceRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		receipt, err := svc.AdvanceRound(ctx)
		if err != nil {
			return receiptResponse{}, err
		}

		return receiptResponse{
			TxReceipt: receipt,
		}, nil
	}
}

func triggerAggregationEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := svc.TriggerAggregation(ctx); err != nil {
			return receiptResponse{}, err
		}

		return ackResponse{Received: true}, nil
	}
}

// The callback is acknowledged regardless of the handling outcome: a retry
// from the aggregation service could only race a finalize that already
// happened.
func aggregationCallbackEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(callbackReq)
		if !ok {
			return ackResponse{Received: true}, nil
		}

		_ = svc.AggregationCallback(ctx, req.Callback)

		return ackResponse{Received: true}, nil
	}
}

func statusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		status, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}

func readModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		model, err := svc.ReadModel(ctx)
		if err != nil {
			return readModelResponse{}, err
		}

		return readModelResponse{
			ReadModel: model,
		}, nil
	}
}

func uploadArtifactEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(uploadArtifactReq)
		if !ok {
			return uploadResponse{}, errors.Join(apiutil.ErrValidation, campaign.ErrInvalidParams)
		}
		if err := req.validate(); err != nil {
			return uploadResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		cid, err := svc.UploadArtifact(ctx, bytes.NewReader(req.data))
		if err != nil {
			return uploadResponse{}, err
		}

		return uploadResponse{CID: cid}, nil
	}
}
