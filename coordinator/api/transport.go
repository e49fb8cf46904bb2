package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/federator/coordinator"
	"github.com/absmach/federator/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxArtifactSize = 1024 * 1024 * 100
	fileKey         = "file"
)

// The hub serves dashboards and trainer nodes from arbitrary hosts, so the
// upgrader accepts every origin instead of gorilla's same-origin default.
// Registration messages carry no credentials to protect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func MakeHandler(svc coordinator.Service, hub *coordinator.Hub, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/campaigns", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createCampaignEndpoint(svc),
			decodeCreateCampaignReq,
			api.EncodeResponse,
			opts...,
		), "create-campaign").ServeHTTP)
		r.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
			statusEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-status").ServeHTTP)
		r.Post("/cancel", otelhttp.NewHandler(kithttp.NewServer(
			cancelCampaignEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "cancel-campaign").ServeHTTP)
		r.Get("/{campaignID}", otelhttp.NewHandler(kithttp.NewServer(
			getCampaignEndpoint(svc),
			decodeEntityReq("campaignID"),
			api.EncodeResponse,
			opts...,
		), "get-campaign").ServeHTTP)
	})

	mux.Route("/models", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			submitModelEndpoint(svc),
			decodeSubmitModelReq,
			api.EncodeResponse,
			opts...,
		), "submit-model").ServeHTTP)
		r.Post("/cbor", otelhttp.NewHandler(kithttp.NewServer(
			submitModelCBOREndpoint(svc),
			decodeSubmitModelCBORReq,
			api.EncodeResponse,
			opts...,
		), "submit-model-cbor").ServeHTTP)
	})

	mux.Route("/rounds", func(r chi.Router) {
		r.Post("/advance", otelhttp.NewHandler(kithttp.NewServer(
			advanceRoundEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "advance-round").ServeHTTP)
		r.Post("/aggregate", otelhttp.NewHandler(kithttp.NewServer(
			triggerAggregationEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "trigger-aggregation").ServeHTTP)
	})

	mux.Post("/callback", otelhttp.NewHandler(kithttp.NewServer(
		aggregationCallbackEndpoint(svc),
		decodeCallbackReq,
		api.EncodeResponse,
		opts...,
	), "aggregation-callback").ServeHTTP)

	mux.Post("/artifacts", otelhttp.NewHandler(kithttp.NewServer(
		uploadArtifactEndpoint(svc),
		decodeUploadArtifactReq,
		api.EncodeResponse,
		opts...,
	), "upload-artifact").ServeHTTP)

	mux.Get("/state", otelhttp.NewHandler(kithttp.NewServer(
		readModelEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "get-read-model").ServeHTTP)

	mux.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade websocket connection", slog.Any("error", err))

			return
		}
		go hub.HandleConn(ws)
	})

	mux.Get("/health", supermq.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		id, err := strconv.ParseUint(chi.URLParam(r, key), 10, 64)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, err)
		}

		return entityReq{
			id: id,
		}, nil
	}
}

func decodeCreateCampaignReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req createCampaignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeSubmitModelReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req submitModelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeSubmitModelCBORReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentTypeCBOR) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return submitModelCBORReq{data: data}, nil
}

func decodeCallbackReq(_ context.Context, r *http.Request) (any, error) {
	var req callbackReq
	if err := json.NewDecoder(r.Body).Decode(&req.Callback); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeUploadArtifactReq(_ context.Context, r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxArtifactSize); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	file, _, err := r.FormFile(fileKey)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return uploadArtifactReq{data: data}, nil
}
