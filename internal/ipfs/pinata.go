// Package ipfs bridges token metadata to the external pinning services:
// the generic pinning provider used for native curve launches and the
// external AMM's own metadata endpoint.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// PinataConfig configures the generic pinning client.
type PinataConfig struct {
	APIKey  string `yaml:"api_key"`
	Gateway string `yaml:"gateway"`
	BaseURL string `yaml:"base_url"`
}

func (c PinataConfig) baseURL() string {
	if c.BaseURL == "" {
		return "https://api.pinata.cloud"
	}
	return c.BaseURL
}

const (
	pinEndpoint      = "/pinning/pinFileToIPFS"
	testAuthEndpoint = "/data/testAuthentication"
	pinTimeout       = 10 * time.Second
)

// PinataClient pins files through the generic provider.
type PinataClient struct {
	config PinataConfig
	client *http.Client
}

// NewPinataClient creates the client.
func NewPinataClient(config PinataConfig) *PinataClient {
	return &PinataClient{
		config: config,
		client: &http.Client{Timeout: pinTimeout},
	}
}

// VerifyConnection checks the configured credentials; called once at
// daemon start so a bad key fails fast.
func (c *PinataClient) VerifyConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.baseURL()+testAuthEndpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to verify connection to pinning service: %s", resp.Status)
	}
	return nil
}

type pinResult struct {
	IpfsHash string `json:"IpfsHash"`
}

// UploadImage pins the token image and returns its gateway URL.
func (c *PinataClient) UploadImage(ctx context.Context, imageContent []byte, name string) (string, error) {
	return c.pin(ctx, name, name+".png", "image/png", imageContent)
}

// UploadJSON pins a JSON document and returns its gateway URL.
func (c *PinataClient) UploadJSON(ctx context.Context, document any, name string) (string, error) {
	content, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("encode metadata json: %w", err)
	}
	return c.pin(ctx, name, name+".json", "application/json", content)
}

func (c *PinataClient) pin(ctx context.Context, name, fileName, mimeType string, content []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	filePart, err := createFormFile(form, "file", fileName, mimeType)
	if err != nil {
		return "", err
	}
	if _, err := filePart.Write(content); err != nil {
		return "", err
	}

	metaPart, err := createFormFile(form, "pinataMetadata", "", "application/json")
	if err != nil {
		return "", err
	}
	if err := json.NewEncoder(metaPart).Encode(map[string]string{"name": name}); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL()+pinEndpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result pinResult
	if err := decodeOrRaw(resp, &result); err != nil {
		return "", err
	}
	return ipfsURL(c.config.Gateway, result.IpfsHash), nil
}

func createFormFile(form *multipart.Writer, field, fileName, mimeType string) (io.Writer, error) {
	header := textproto.MIMEHeader{}
	disposition := fmt.Sprintf(`form-data; name=%q`, field)
	if fileName != "" {
		disposition = fmt.Sprintf(`form-data; name=%q; filename=%q`, field, fileName)
	}
	header.Set("Content-Disposition", disposition)
	header.Set("Content-Type", mimeType)
	return form.CreatePart(header)
}

func ipfsURL(gatewayTag, ipfsHash string) string {
	return fmt.Sprintf("https://%s.mypinata.cloud/ipfs/%s", gatewayTag, ipfsHash)
}

// decodeOrRaw decodes the response as JSON, attaching the raw body to the
// error when the shape mismatches.
func decodeOrRaw(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode json response: %w, raw body: %q, status: %s",
			err, raw, resp.Status)
	}
	return nil
}

// OffchainMetadata is the pinned JSON document shape for native curve
// launches.
type OffchainMetadata struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	ShowName    bool    `json:"showName"`
	CreatedOn   string  `json:"createdOn"`
	Telegram    *string `json:"telegram,omitempty"`
	Website     *string `json:"website,omitempty"`
	Twitter     *string `json:"twitter,omitempty"`
}
