package gateway

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// Telegram sends through the Bot API.
type Telegram struct {
	bot    *telego.Bot
	logger *zap.Logger
}

// NewTelegram builds a Bot API client for token.
func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, logger: logger}, nil
}

// Send delivers content to a private chat.
func (t *Telegram) Send(ctx context.Context, recipient int64, content Content) error {
	return t.deliver(ctx, tu.ID(recipient), content)
}

// Publish posts content to a public channel such as "@jumarket".
func (t *Telegram) Publish(ctx context.Context, channel string, content Content) error {
	return t.deliver(ctx, tu.Username(channel), content)
}

// AnswerCallback stops the client spinner on a pressed button.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	params := tu.CallbackQuery(callbackID)
	if text != "" {
		params = params.WithText(text)
	}
	return t.bot.AnswerCallbackQuery(ctx, params)
}

// RegisterWebhook points the Bot API at url, signing calls with secret.
func (t *Telegram) RegisterWebhook(ctx context.Context, url, secret string) error {
	return t.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:         url,
		SecretToken: secret,
	})
}

// Username returns the bot's own handle.
func (t *Telegram) Username(ctx context.Context) (string, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return "", err
	}
	return me.Username, nil
}

func (t *Telegram) deliver(ctx context.Context, chat telego.ChatID, content Content) error {
	markup := keyboard(content.Actions)
	if content.MediaRef != "" {
		params := tu.Photo(chat, tu.FileFromID(content.MediaRef)).WithCaption(content.Text)
		if markup != nil {
			params = params.WithReplyMarkup(markup)
		}
		_, err := t.bot.SendPhoto(ctx, params)
		return err
	}
	params := tu.Message(chat, content.Text)
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	_, err := t.bot.SendMessage(ctx, params)
	return err
}

func keyboard(rows [][]Action) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(a.Label).WithCallbackData(a.Data))
		}
		out = append(out, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(out...)
}
