package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Detector runs inference on a JPEG image.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Client calls an Ultralytics-compatible inference server over HTTP.
type Client struct {
	baseURL    string
	confidence float64
	httpClient *http.Client
}

type HTTPStatusError struct {
	Status int
	Body   string
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("detector error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Config defines runtime configuration for the detector client.
type Config struct {
	URL        string
	Confidence float64
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("detector url is required")
	}
	confidence := cfg.Confidence
	if confidence <= 0 {
		confidence = 0.25
	}
	if confidence > 1 {
		return nil, fmt.Errorf("detector confidence must be in (0,1]")
	}
	return &Client{
		baseURL:    baseURL,
		confidence: confidence,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Detect posts the image to /predict and returns the parsed detections.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "snapshot.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	query := url.Values{"conf": {strconv.FormatFloat(c.confidence, 'f', -1, 64)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict?"+query.Encode(), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, HTTPStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Detections []Detection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return parsed.Detections, nil
}
