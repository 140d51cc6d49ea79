package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"MusicFlow/logger"
)

// DefaultImportError is shown when the server gives no better reason.
const DefaultImportError = "Import failed."

// HTTPDoer is the subset of *http.Client the gateway needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ImportError carries the message the listener should see.
type ImportError struct {
	Status  int // 0 when the request never got an answer
	Message string
}

func (e *ImportError) Error() string { return e.Message }

// ImportClient asks the server to download a remote audio file into the
// music directory.
type ImportClient struct {
	client HTTPDoer
	base   string
}

func NewImportClient(client HTTPDoer, baseURL string) *ImportClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &ImportClient{client: client, base: strings.TrimRight(baseURL, "/")}
}

type importResponse struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Import returns the name of the saved file.
func (c *ImportClient) Import(ctx context.Context, rawURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return "", &ImportError{Message: DefaultImportError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/import", bytes.NewReader(payload))
	if err != nil {
		return "", &ImportError{Message: DefaultImportError}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("import request failed", logger.String("url", rawURL), logger.ErrorField(err))
		return "", &ImportError{Message: DefaultImportError}
	}
	defer resp.Body.Close()

	var data importResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := data.Error
		if decodeErr != nil || msg == "" {
			msg = DefaultImportError
		}
		return "", &ImportError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &ImportError{Status: resp.StatusCode, Message: DefaultImportError}
	}
	return data.File, nil
}
