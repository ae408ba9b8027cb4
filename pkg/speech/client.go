// Package speech converts between audio and text through an
// OpenAI-compatible audio API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
)

const (
	// DefaultBaseURL is the OpenAI API root
	DefaultBaseURL = "https://api.openai.com/v1"

	DefaultTranscriptionModel = "whisper-1"
	DefaultSpeechModel        = "tts-1"
	DefaultVoice              = "alloy"
	DefaultFileType           = "wav"
)

// Client calls the transcription and speech synthesis endpoints.
type Client struct {
	client  *fetch.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates a speech client. An empty baseURL selects DefaultBaseURL.
func NewClient(client *fetch.Client, baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.With("component", "speech"),
	}
}

func (c *Client) fail(err error) error {
	return &fetch.FetchError{Service: fetch.ServiceSpeech, Cause: err}
}

// Transcribe uploads audio and returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileType string) (string, error) {
	if c.apiKey == "" {
		return "", c.fail(fetch.ErrMissingAPIKey)
	}
	if fileType == "" {
		fileType = DefaultFileType
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", DefaultTranscriptionModel); err != nil {
		return "", c.fail(fmt.Errorf("write model field: %w", err))
	}
	part, err := mw.CreateFormFile("file", "audio."+fileType)
	if err != nil {
		return "", c.fail(fmt.Errorf("create file part: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return "", c.fail(fmt.Errorf("write audio: %w", err))
	}
	if err := mw.Close(); err != nil {
		return "", c.fail(fmt.Errorf("close multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", c.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.client.Do(ctx, fetch.ServiceSpeech, req)
	if err != nil {
		return "", err
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", c.fail(fmt.Errorf("decode transcription: %w", err))
	}

	c.logger.Debug("transcribed audio", "bytes", len(audio), "chars", len(out.Text))
	return out.Text, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize converts text to MP3 audio and returns the bytes and their MIME type.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	if c.apiKey == "" {
		return nil, "", c.fail(fetch.ErrMissingAPIKey)
	}
	if voice == "" {
		voice = DefaultVoice
	}

	payload, err := json.Marshal(speechRequest{
		Model:          DefaultSpeechModel,
		Input:          text,
		Voice:          voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, "", c.fail(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, "", c.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	audio, err := c.client.Do(ctx, fetch.ServiceSpeech, req)
	if err != nil {
		return nil, "", err
	}

	return audio, "audio/mpeg", nil
}
