package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// TranscriptionService transcribes voice notes through a Whisper-compatible
// API. A failed transcription is reported as an error so the caller can fall
// back to the brain dump; the audio is never silently discarded.
type TranscriptionService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewTranscriptionService creates a transcriber for the configured endpoint.
func NewTranscriptionService(baseURL, apiKey, model string) *TranscriptionService {
	return &TranscriptionService{
		httpClient: &http.Client{Timeout: 60 * time.Second}, // voice notes can take a while
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Transcribe sends the audio bytes to the transcription API and returns the
// recognized text.
func (s *TranscriptionService) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("transcription API key not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", s.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("failed to write format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	log.Printf("🎵 [AUDIO] Transcribing voice note (%d bytes)", len(audio))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	transcription := strings.TrimSpace(string(respBody))
	if transcription == "" {
		return "", fmt.Errorf("voice note was empty or inaudible")
	}
	return transcription, nil
}
