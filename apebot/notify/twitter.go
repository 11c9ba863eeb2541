package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/greatapesociety/apebot/apebot/sales"
)

const (
	defaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	defaultStatusURL = "https://api.twitter.com/1.1/statuses/update.json"
)

// TwitterCredentials holds the OAuth1 consumer and access keys.
type TwitterCredentials struct {
	APIKey       string `toml:"api_key"`
	APISecret    string `toml:"api_secret"`
	AccessToken  string `toml:"access_token"`
	AccessSecret string `toml:"access_secret"`
}

// TwitterNotifier tweets each sale with the subject's image attached.
type TwitterNotifier struct {
	signedClient *http.Client // OAuth1-signed, talks to the Twitter API
	imageClient  *http.Client // plain, downloads marketplace images

	uploadURL string
	statusURL string

	collectionName string
	hashtags       []string
	logger         *slog.Logger
}

// TwitterOption customizes a TwitterNotifier.
type TwitterOption func(*TwitterNotifier)

// WithTwitterEndpoints overrides the upload and status endpoints.
func WithTwitterEndpoints(uploadURL, statusURL string) TwitterOption {
	return func(n *TwitterNotifier) {
		n.uploadURL = uploadURL
		n.statusURL = statusURL
	}
}

// WithSignedClient replaces the OAuth1-signed HTTP client.
func WithSignedClient(client *http.Client) TwitterOption {
	return func(n *TwitterNotifier) {
		n.signedClient = client
	}
}

// WithImageClient replaces the client used for image downloads.
func WithImageClient(client *http.Client) TwitterOption {
	return func(n *TwitterNotifier) {
		n.imageClient = client
	}
}

func NewTwitterNotifier(creds TwitterCredentials, collectionName string, hashtags []string, logger *slog.Logger, opts ...TwitterOption) *TwitterNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	n := &TwitterNotifier{
		signedClient:   config.Client(oauth1.NoContext, token),
		imageClient:    &http.Client{Timeout: 30 * time.Second},
		uploadURL:      defaultUploadURL,
		statusURL:      defaultStatusURL,
		collectionName: collectionName,
		hashtags:       hashtags,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *TwitterNotifier) Name() string { return "twitter" }

func (n *TwitterNotifier) NotifySale(ctx context.Context, sale sales.Sale) error {
	text := TweetText(sale, n.collectionName, n.hashtags)

	// A missing image degrades the tweet, it never suppresses it.
	mediaID, err := n.uploadImage(ctx, sale.Subject.ImageURL())
	if err != nil {
		n.logger.Error("Tweet image upload failed, tweeting without media",
			slog.String("type", "error"),
			slog.Int64("sale_id", sale.ID),
			slog.Any("error", err))
		mediaID = ""
	}

	if err := n.postStatus(ctx, text, mediaID); err != nil {
		return fmt.Errorf("post tweet: %w", err)
	}

	n.logger.Info("Sale tweeted",
		slog.String("type", "poll"),
		slog.Int64("sale_id", sale.ID))
	return nil
}

// uploadImage downloads the asset image and pushes it through the media
// upload endpoint, returning the media ID to attach.
func (n *TwitterNotifier) uploadImage(ctx context.Context, imageURL string) (string, error) {
	if imageURL == "" {
		return "", fmt.Errorf("no image URL on sale subject")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := n.imageClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("media", "sale.png")
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, resp.Body); err != nil {
		return "", fmt.Errorf("copy image into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.uploadURL, &form)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	upReq.Header.Set("Content-Type", writer.FormDataContentType())

	upResp, err := n.signedClient.Do(upReq)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer upResp.Body.Close()
	if upResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(upResp.Body)
		return "", fmt.Errorf("upload media: status %d: %s", upResp.StatusCode, string(body))
	}

	var payload struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(upResp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if payload.MediaIDString == "" {
		return "", fmt.Errorf("upload response carried no media ID")
	}
	return payload.MediaIDString, nil
}

func (n *TwitterNotifier) postStatus(ctx context.Context, text, mediaID string) error {
	values := url.Values{"status": {text}}
	if mediaID != "" {
		values.Set("media_ids", mediaID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.statusURL, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.signedClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
