package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/Alqaedgcb/legal-telegram-bot/internal/common/errors"
	"github.com/Alqaedgcb/legal-telegram-bot/internal/transport"
)

const defaultAPIBase = "https://api.telegram.org"

// Client provides the minimal Telegram Bot API surface the relay uses.
// It implements transport.Messenger.
type Client struct {
	httpClient *http.Client
	pollClient *http.Client
	apiBase    string
	token      string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Long polling holds the connection open for the poll timeout;
		// the request context bounds it instead of a client timeout.
		pollClient: &http.Client{},
		apiBase:    defaultAPIBase,
		token:      token,
	}
}

// NewClientWithBase is used by tests to point the client at a stub server.
func NewClientWithBase(token, apiBase string) *Client {
	c := NewClient(token)
	c.apiBase = strings.TrimRight(apiBase, "/")
	return c
}

type tgResponse[T any] struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	Result      T      `json:"result"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, actions ...transport.Action) (transport.MessageRef, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	if len(actions) > 0 {
		markup, err := json.Marshal(keyboardFor(actions))
		if err != nil {
			return transport.MessageRef{}, err
		}
		params.Set("reply_markup", string(markup))
	}

	var result tgResponse[Message]
	if err := c.makeRequest(ctx, c.httpClient, http.MethodPost, "sendMessage", params, &result); err != nil {
		return transport.MessageRef{}, apperrors.Wrap(apperrors.ErrCodeDeliveryFailed, "sendMessage", err)
	}
	if !result.Ok {
		return transport.MessageRef{}, apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}

	return transport.MessageRef{ChatID: chatID, MessageID: result.Result.MessageID}, nil
}

func (c *Client) EditMessage(ctx context.Context, ref transport.MessageRef, text string, actions ...transport.Action) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(ref.ChatID, 10)},
		"message_id": {strconv.Itoa(ref.MessageID)},
		"text":       {text},
	}
	if len(actions) > 0 {
		markup, err := json.Marshal(keyboardFor(actions))
		if err != nil {
			return err
		}
		params.Set("reply_markup", string(markup))
	}

	var result tgResponse[json.RawMessage]
	if err := c.makeRequest(ctx, c.httpClient, http.MethodPost, "editMessageText", params, &result); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeDeliveryFailed, "editMessageText", err)
	}
	if !result.Ok {
		return apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	params := url.Values{"callback_query_id": {callbackID}}
	if text != "" {
		params.Set("text", text)
	}

	var result tgResponse[bool]
	if err := c.makeRequest(ctx, c.httpClient, http.MethodPost, "answerCallbackQuery", params, &result); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeDeliveryFailed, "answerCallbackQuery", err)
	}
	if !result.Ok {
		return apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}
	return nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(timeoutSec)},
		"allowed_updates": {`["message","callback_query"]`},
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	var result tgResponse[[]Update]
	if err := c.makeRequest(ctx, c.pollClient, http.MethodGet, "getUpdates", params, &result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTelegramAPI, "getUpdates", err)
	}
	if !result.Ok {
		return nil, apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}
	return result.Result, nil
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var result tgResponse[User]
	if err := c.makeRequest(ctx, c.httpClient, http.MethodGet, "getMe", nil, &result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTelegramAPI, "getMe", err)
	}
	if !result.Ok {
		return nil, apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}
	return &result.Result, nil
}

func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	params := url.Values{
		"url":             {webhookURL},
		"allowed_updates": {`["message","callback_query"]`},
	}
	if secret != "" {
		params.Set("secret_token", secret)
	}

	var result tgResponse[bool]
	if err := c.makeRequest(ctx, c.httpClient, http.MethodPost, "setWebhook", params, &result); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTelegramAPI, "setWebhook", err)
	}
	if !result.Ok {
		return apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}
	log.Info().Str("url", webhookURL).Msg("webhook registered")
	return nil
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	var result tgResponse[bool]
	if err := c.makeRequest(ctx, c.httpClient, http.MethodPost, "deleteWebhook", nil, &result); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTelegramAPI, "deleteWebhook", err)
	}
	if !result.Ok {
		return apperrors.New(apperrors.ErrCodeTelegramAPI, result.Description)
	}
	return nil
}

// keyboardFor lays the buttons out the way the bot always has: a decision
// pair side by side, anything else one per row.
func keyboardFor(actions []transport.Action) inlineKeyboardMarkup {
	var rows [][]inlineKeyboardButton
	if len(actions) == 2 {
		rows = [][]inlineKeyboardButton{{
			{Text: actions[0].Label, CallbackData: actions[0].Token},
			{Text: actions[1].Label, CallbackData: actions[1].Token},
		}}
	} else {
		for _, a := range actions {
			rows = append(rows, []inlineKeyboardButton{{Text: a.Label, CallbackData: a.Token}})
		}
	}
	return inlineKeyboardMarkup{InlineKeyboard: rows}
}

func (c *Client) makeRequest(ctx context.Context, client *http.Client, method, apiMethod string, data url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, apiMethod)

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = endpoint + "?" + data.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return err
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

var _ transport.Messenger = (*Client)(nil)
