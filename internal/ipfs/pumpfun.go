package ipfs

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"time"
)

// PumpfunIpfsConfig configures the external AMM's metadata endpoint.
type PumpfunIpfsConfig struct {
	BaseURL string `yaml:"base_url"`
}

func (c PumpfunIpfsConfig) baseURL() string {
	if c.BaseURL == "" {
		return "https://pump.fun"
	}
	return c.BaseURL
}

const pumpfunUploadTimeout = 7 * time.Second

// PumpfunIpfsClient deploys token metadata through the AMM's endpoint: all
// fields and the image in one multipart POST.
type PumpfunIpfsClient struct {
	config PumpfunIpfsConfig
	client *http.Client
}

// NewPumpfunIpfsClient creates the client.
func NewPumpfunIpfsClient(config PumpfunIpfsConfig) *PumpfunIpfsClient {
	return &PumpfunIpfsClient{
		config: config,
		client: &http.Client{Timeout: pumpfunUploadTimeout},
	}
}

// CreateTokenMetadata is the upload payload.
type CreateTokenMetadata struct {
	Name         string
	Symbol       string
	Description  string
	ImageContent []byte
	Twitter      *string
	Telegram     *string
	Website      *string
}

// TokenMetadataResponse carries the resolvable metadata URI.
type TokenMetadataResponse struct {
	MetadataURI string `json:"metadataUri"`
}

// DeployMetadata uploads the metadata and image, returning the pinned URI.
func (c *PumpfunIpfsClient) DeployMetadata(ctx context.Context, metadata CreateTokenMetadata) (TokenMetadataResponse, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"name":        metadata.Name,
		"symbol":      metadata.Symbol,
		"description": metadata.Description,
		"showName":    "true",
	}
	optional := map[string]*string{
		"twitter":  metadata.Twitter,
		"telegram": metadata.Telegram,
		"website":  metadata.Website,
	}
	for field, value := range optional {
		if value != nil {
			fields[field] = *value
		}
	}
	for field, value := range fields {
		if err := form.WriteField(field, value); err != nil {
			return TokenMetadataResponse{}, err
		}
	}

	filePart, err := createFormFile(form, "file", "file", "application/octet-stream")
	if err != nil {
		return TokenMetadataResponse{}, err
	}
	if _, err := filePart.Write(metadata.ImageContent); err != nil {
		return TokenMetadataResponse{}, err
	}
	if err := form.Close(); err != nil {
		return TokenMetadataResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL()+"/api/ipfs", &body)
	if err != nil {
		return TokenMetadataResponse{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return TokenMetadataResponse{}, err
	}
	defer resp.Body.Close()

	var result TokenMetadataResponse
	if err := decodeOrRaw(resp, &result); err != nil {
		return TokenMetadataResponse{}, err
	}
	return result, nil
}
