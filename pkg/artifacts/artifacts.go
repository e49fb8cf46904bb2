package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
)

var (
	ErrInvalidCID  = errors.New("invalid content identifier")
	ErrStoreStatus = errors.New("artifact store returned unexpected status")
)

// Store is a content-addressed blob store. Put returns a stable CID for the
// given bytes; Get by CID always returns the same bytes.
type Store interface {
	Put(ctx context.Context, data io.Reader) (string, error)
	Get(ctx context.Context, cidStr string) (io.ReadCloser, error)
}

type ipfsStore struct {
	apiURL string
	client *http.Client
}

// NewIPFSStore returns a Store backed by the IPFS HTTP API at apiURL
// (e.g. http://localhost:5001).
func NewIPFSStore(apiURL string, timeout time.Duration) Store {
	return &ipfsStore{
		apiURL: apiURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *ipfsStore) Put(ctx context.Context, data io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "artifact")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("failed to buffer artifact: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/v0/add?cid-version=1", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrStoreStatus, resp.StatusCode)
	}

	var added struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", fmt.Errorf("failed to decode add response: %w", err)
	}
	if _, err := cid.Decode(added.Hash); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidCID, added.Hash)
	}

	return added.Hash, nil
}

func (s *ipfsStore) Get(ctx context.Context, cidStr string) (io.ReadCloser, error) {
	if _, err := cid.Decode(cidStr); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCID, cidStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/v0/cat?arg="+cidStr, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", cidStr, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("%w: %d", ErrStoreStatus, resp.StatusCode)
	}

	return resp.Body, nil
}
