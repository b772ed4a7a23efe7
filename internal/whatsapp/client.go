package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://graph.facebook.com"

// ClientConfig carries the Cloud API credentials.
type ClientConfig struct {
	AccessToken   string
	PhoneNumberID string
	GraphVersion  string
	// BaseURL overrides the Graph API host, used in tests.
	BaseURL string
}

// Client talks to the WhatsApp Cloud API.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	log        zerolog.Logger
}

func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.GraphVersion == "" {
		cfg.GraphVersion = "v17.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
		log:        log,
	}
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a plain text message to the given phone number.
func (c *Client) SendText(ctx context.Context, phoneNumber, text string) error {
	url := fmt.Sprintf("%s/%s/%s/messages", c.cfg.BaseURL, c.cfg.GraphVersion, c.cfg.PhoneNumberID)

	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               phoneNumber,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// DownloadMedia fetches a media object (e.g. a voice note) by id: first the
// metadata lookup, then the authenticated content download.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	infoURL := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.GraphVersion, mediaID)

	info, err := c.getJSON(ctx, infoURL)
	if err != nil {
		return nil, "", fmt.Errorf("media info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	return data, info.MimeType, nil
}

func (c *Client) getJSON(ctx context.Context, url string) (mediaInfo, error) {
	var info mediaInfo

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return info, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return info, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return info, fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return info, fmt.Errorf("decode response: %w", err)
	}
	return info, nil
}
