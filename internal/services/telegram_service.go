package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"golang.org/x/time/rate"

	"lifeorganizer/internal/models"
)

// Telegram Markdown converter using telegold (goldmark with Telegram HTML renderer)
var telegramMarkdownConverter = goldmark.New(goldmark.WithRenderer(telegold.NewRenderer()))

// TelegramService is the bot transport: a long-polling receive loop plus
// the outbound send helpers. All outbound calls share a rate limiter kept
// under Telegram's ~30 messages/second bot limit.
type TelegramService struct {
	botToken      string
	apiBase       string
	httpClient    *http.Client
	pollingClient *http.Client // Longer timeout for long polling
	limiter       *rate.Limiter
	handler       func(ctx context.Context, update *models.TelegramUpdate)
	stopChan      chan struct{}
	lastOffset    int64
}

// NewTelegramService creates the transport for a single bot.
func NewTelegramService(botToken string) *TelegramService {
	return &TelegramService{
		botToken:      botToken,
		apiBase:       "https://api.telegram.org",
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		pollingClient: &http.Client{Timeout: 40 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(25), 5),
		stopChan:      make(chan struct{}),
	}
}

// SetUpdateHandler registers the callback invoked for each inbound update.
func (s *TelegramService) SetUpdateHandler(handler func(ctx context.Context, update *models.TelegramUpdate)) {
	s.handler = handler
}

// StartPolling starts the long-polling loop in a goroutine.
func (s *TelegramService) StartPolling() {
	go s.runPoller()
}

// Stop terminates the polling loop.
func (s *TelegramService) Stop() {
	close(s.stopChan)
}

func (s *TelegramService) runPoller() {
	log.Printf("📡 [POLLING] Polling loop started")

	for {
		select {
		case <-s.stopChan:
			log.Printf("📡 [POLLING] Poller stopped")
			return
		default:
			updates, err := s.getUpdates(s.lastOffset)
			if err != nil {
				log.Printf("⚠️ [POLLING] Error getting updates: %v", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, update := range updates {
				if update.UpdateID >= s.lastOffset {
					s.lastOffset = update.UpdateID + 1
				}

				if s.handler == nil {
					continue
				}
				ctx := context.Background()
				if update.CallbackQuery != nil {
					// Ack the button press so the client stops its spinner.
					s.answerCallbackQuery(ctx, update.CallbackQuery.ID)
				}
				s.handler(ctx, update)
			}
		}
	}
}

func (s *TelegramService) getUpdates(offset int64) ([]*models.TelegramUpdate, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=30&allowed_updates=[\"message\",\"callback_query\"]", s.apiBase, s.botToken)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	req, _ := http.NewRequest("GET", url, nil)

	resp, err := s.pollingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool                     `json:"ok"`
		Result []*models.TelegramUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("Telegram API returned not OK")
	}
	return result.Result, nil
}

// convertToTelegramHTML converts standard Markdown to Telegram-compatible HTML.
func convertToTelegramHTML(text string) string {
	var buf bytes.Buffer
	if err := telegramMarkdownConverter.Convert([]byte(text), &buf); err != nil {
		// If conversion fails, return original text
		log.Printf("⚠️ [TELEGRAM] Markdown conversion failed: %v", err)
		return text
	}
	return buf.String()
}

// SendMessage sends a message, splitting it when it exceeds Telegram's
// 4096-character limit. Uses HTML format (more reliable than MarkdownV2),
// falls back to plain text if parsing fails.
func (s *TelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	const maxChunkSize = 4000 // Leave some margin for safety

	chunks := splitMessageIntoChunks(text, maxChunkSize)
	for i, chunk := range chunks {
		if len(chunks) > 1 {
			chunk = fmt.Sprintf("**[Part %d/%d]**\n\n%s", i+1, len(chunks), chunk)
		}
		if err := s.sendOne(ctx, chatID, chunk, nil); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// SendChoices sends a message with an inline keyboard, one button per row.
func (s *TelegramService) SendChoices(ctx context.Context, chatID int64, text string, buttons []models.ChoiceButton) error {
	rows := make([][]models.ChoiceButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []models.ChoiceButton{b})
	}
	return s.sendOne(ctx, chatID, text, &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (s *TelegramService) sendOne(ctx context.Context, chatID int64, text string, markup *models.InlineKeyboardMarkup) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       convertToTelegramHTML(text),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	errStr, err := s.postJSON(ctx, "sendMessage", payload)
	if err != nil {
		return err
	}
	if errStr == "" {
		return nil
	}

	if strings.Contains(errStr, "can't parse entities") {
		// Retry with plain text
		log.Printf("⚠️ [TELEGRAM] HTML parsing failed, retrying without parse_mode")
		payload = map[string]interface{}{
			"chat_id": chatID,
			"text":    stripMarkdown(text),
		}
		if markup != nil {
			payload["reply_markup"] = markup
		}
		errStr, err = s.postJSON(ctx, "sendMessage", payload)
		if err != nil {
			return err
		}
		if errStr != "" {
			return fmt.Errorf("Telegram API error (plain): %s", errStr)
		}
		return nil
	}

	return fmt.Errorf("Telegram API error: %s", errStr)
}

// SendTyping sends a "typing" action to indicate the bot is working.
// Failures are ignored; the action is cosmetic.
func (s *TelegramService) SendTyping(ctx context.Context, chatID int64) {
	_, _ = s.postJSON(ctx, "sendChatAction", map[string]interface{}{
		"chat_id": chatID,
		"action":  "typing",
	})
}

func (s *TelegramService) answerCallbackQuery(ctx context.Context, callbackID string) {
	_, _ = s.postJSON(ctx, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackID,
	})
}

// postJSON posts a payload to a bot API method. It returns the response
// body as errStr when Telegram answers non-200, so callers can inspect the
// API error without treating transport errors the same way.
func (s *TelegramService) postJSON(ctx context.Context, method string, payload map[string]interface{}) (errStr string, err error) {
	url := fmt.Sprintf("%s/bot%s/%s", s.apiBase, s.botToken, method)
	body, _ := json.Marshal(payload)

	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		return "", nil
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	return string(bodyBytes), nil
}

// getFileURL resolves a file_id to its download URL.
func (s *TelegramService) getFileURL(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", s.apiBase, s.botToken, fileID)

	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK || result.Result.FilePath == "" {
		return "", fmt.Errorf("file not found")
	}

	return fmt.Sprintf("%s/file/bot%s/%s", s.apiBase, s.botToken, result.Result.FilePath), nil
}

// DownloadFile downloads a file from Telegram and returns the bytes.
func (s *TelegramService) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	downloadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	fileURL, err := s.getFileURL(downloadCtx, fileID)
	if err != nil {
		return nil, err
	}

	req, _ := http.NewRequestWithContext(downloadCtx, "GET", fileURL, nil)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	log.Printf("📥 [TELEGRAM] Downloaded file %s (%d bytes)", fileID, len(data))
	return data, nil
}

var (
	fencedBlockRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")
	headingMarkRe  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// stripMarkdown reduces Markdown to plain text for the retry path when
// Telegram rejects the HTML rendering.
func stripMarkdown(text string) string {
	text = fencedBlockRe.ReplaceAllString(text, "$1")
	for _, mark := range []string{"**", "__", "~~", "`"} {
		text = strings.ReplaceAll(text, mark, "")
	}
	text = headingMarkRe.ReplaceAllString(text, "")
	return markdownLinkRe.ReplaceAllString(text, "$1 ($2)")
}

// chunkSeparators are tried coarsest first; a break must land in the
// second half of the window so no chunk degenerates to a few characters.
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// splitMessageIntoChunks splits long text at natural boundaries without
// cutting inside a fenced code block.
func splitMessageIntoChunks(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > maxSize {
		window := remaining[:maxSize]
		cut := maxSize
		for _, sep := range chunkSeparators {
			idx := strings.LastIndex(window, sep)
			if idx > maxSize/2 && !insideFence(remaining, idx) {
				cut = idx + len(sep)
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(remaining[:cut]))
		remaining = strings.TrimSpace(remaining[cut:])
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// insideFence reports whether position idx sits in an unclosed ``` block.
func insideFence(s string, idx int) bool {
	return strings.Count(s[:idx], "```")%2 == 1
}
