package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// telegramAPI holds the shared bot transport for the messaging tools.
type telegramAPI struct {
	token   string
	baseURL string
	client  *http.Client
}

func newTelegramAPI(token, baseURL string) (*telegramAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram tools require a bot token")
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &telegramAPI{
		token:   token,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (t *telegramAPI) call(ctx context.Context, method string, payload map[string]interface{}) Result {
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Fail("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return Fail("telegram %s: %v", method, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Fail("telegram %s: decode: %v", method, err)
	}
	if !parsed.OK {
		return Fail("telegram %s: %s", method, parsed.Description)
	}
	return Ok(map[string]interface{}{"result": parsed.Result})
}

// SendMessage delivers a text message to a Telegram chat.
type SendMessage struct {
	api *telegramAPI
}

func NewSendMessage(token, baseURL string) (*SendMessage, error) {
	api, err := newTelegramAPI(token, baseURL)
	if err != nil {
		return nil, err
	}
	return &SendMessage{api: api}, nil
}

func (s *SendMessage) Name() string     { return "send_message" }
func (s *SendMessage) Describe() string { return "Send a message to a Telegram chat" }

func (s *SendMessage) Execute(ctx context.Context, input map[string]interface{}) Result {
	chatID, ok := stringParam(input, "chat_id")
	if !ok {
		return Fail("send_message requires a chat_id parameter")
	}
	text, ok := stringParam(input, "text")
	if !ok {
		return Fail("send_message requires a text parameter")
	}
	return s.api.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
}

// BanUser removes a member from a Telegram chat.
type BanUser struct {
	api *telegramAPI
}

func NewBanUser(token, baseURL string) (*BanUser, error) {
	api, err := newTelegramAPI(token, baseURL)
	if err != nil {
		return nil, err
	}
	return &BanUser{api: api}, nil
}

func (b *BanUser) Name() string     { return "ban_user" }
func (b *BanUser) Describe() string { return "Ban a user from a Telegram chat" }

func (b *BanUser) Execute(ctx context.Context, input map[string]interface{}) Result {
	chatID, ok := stringParam(input, "chat_id")
	if !ok {
		return Fail("ban_user requires a chat_id parameter")
	}
	userID, ok := floatParam(input, "user_id")
	if !ok {
		return Fail("ban_user requires a numeric user_id parameter")
	}
	return b.api.call(ctx, "banChatMember", map[string]interface{}{
		"chat_id": chatID,
		"user_id": int64(userID),
	})
}
