package ipfs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinataUploadImageAndJSON(t *testing.T) {
	var sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case testAuthEndpoint:
			w.WriteHeader(http.StatusOK)
		case pinEndpoint:
			sawAuth = r.Header.Get("Authorization")
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			assert.NotEmpty(t, header.Filename)
			json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmHash"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewPinataClient(PinataConfig{
		APIKey:  "secret-key",
		Gateway: "gate",
		BaseURL: server.URL,
	})
	require.NoError(t, client.VerifyConnection(context.Background()))

	url, err := client.UploadImage(context.Background(), []byte{1, 2, 3}, "moon")
	require.NoError(t, err)
	assert.Equal(t, "https://gate.mypinata.cloud/ipfs/QmHash", url)
	assert.Equal(t, "Bearer secret-key", sawAuth)

	url, err = client.UploadJSON(context.Background(), OffchainMetadata{
		Name: "Moon", Symbol: "MOON", ShowName: true,
	}, "moon")
	require.NoError(t, err)
	assert.Equal(t, "https://gate.mypinata.cloud/ipfs/QmHash", url)
}

func TestPinataVerifyConnectionFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewPinataClient(PinataConfig{APIKey: "bad", BaseURL: server.URL})
	assert.Error(t, client.VerifyConnection(context.Background()))
}

func TestPumpfunDeployMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ipfs", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Moon", r.FormValue("name"))
		assert.Equal(t, "MOON", r.FormValue("symbol"))
		assert.Equal(t, "true", r.FormValue("showName"))
		assert.Equal(t, "https://t.me/moon", r.FormValue("telegram"))
		assert.Empty(t, r.FormValue("twitter"))
		json.NewEncoder(w).Encode(map[string]string{"metadataUri": "ipfs://QmMeta"})
	}))
	defer server.Close()

	telegram := "https://t.me/moon"
	client := NewPumpfunIpfsClient(PumpfunIpfsConfig{BaseURL: server.URL})
	response, err := client.DeployMetadata(context.Background(), CreateTokenMetadata{
		Name:         "Moon",
		Symbol:       "MOON",
		Description:  "to the moon",
		ImageContent: []byte{9, 9, 9},
		Telegram:     &telegram,
	})
	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmMeta", response.MetadataURI)
}

func TestDecodeOrRawAttachesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	client := NewPinataClient(PinataConfig{APIKey: "k", Gateway: "g", BaseURL: server.URL})
	_, err := client.UploadImage(context.Background(), []byte{1}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream broke")
}
