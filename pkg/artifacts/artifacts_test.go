package artifacts_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/federator/pkg/artifacts"
)

// Well-formed CIDv1, decodable by cid.Decode.
const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

func TestStorePut(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "weights", string(data))

		json.NewEncoder(w).Encode(map[string]string{"Hash": testCID})
	}))
	defer srv.Close()

	store := artifacts.NewIPFSStore(srv.URL, time.Second)
	cid, err := store.Put(context.Background(), strings.NewReader("weights"))
	require.NoError(t, err)
	assert.Equal(t, testCID, cid)
	assert.Equal(t, "/api/v0/add", gotPath)
}

func TestStorePutInvalidHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"Hash": "not-a-cid"})
	}))
	defer srv.Close()

	store := artifacts.NewIPFSStore(srv.URL, time.Second)
	_, err := store.Put(context.Background(), strings.NewReader("weights"))
	assert.ErrorIs(t, err, artifacts.ErrInvalidCID)
}

func TestStorePutServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := artifacts.NewIPFSStore(srv.URL, time.Second)
	_, err := store.Put(context.Background(), strings.NewReader("weights"))
	assert.ErrorIs(t, err, artifacts.ErrStoreStatus)
}

func TestStoreGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/cat", r.URL.Path)
		assert.Equal(t, testCID, r.URL.Query().Get("arg"))
		w.Write([]byte("weights"))
	}))
	defer srv.Close()

	store := artifacts.NewIPFSStore(srv.URL, time.Second)
	body, err := store.Get(context.Background(), testCID)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))
}

func TestStoreGetInvalidCID(t *testing.T) {
	store := artifacts.NewIPFSStore("http://localhost:5001", time.Second)
	_, err := store.Get(context.Background(), "not-a-cid")
	assert.ErrorIs(t, err, artifacts.ErrInvalidCID)
}
