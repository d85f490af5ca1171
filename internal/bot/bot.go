package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Bot wires Telegram updates to the Router and renders its replies.
type Bot struct {
	Instance *telego.Bot
	Router   *Router
	Links    Links
}

func NewBot(instance *telego.Bot, router *Router, links Links) *Bot {
	return &Bot{
		Instance: instance,
		Router:   router,
		Links:    links,
	}
}

// Start long-polls until ctx is cancelled. Each update is handled independently; a failing
// handler only affects its own update.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	// /start [ref<id>]
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		reply := b.Router.Start(ctx.Context(), fromUser(message.From), commandArgs(message.Text))
		b.send(ctx.Context(), message.Chat.ID, reply)
		return nil
	}, th.CommandEqual("start"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		b.send(ctx.Context(), message.Chat.ID, b.Router.Stats(ctx.Context(), fromUser(message.From)))
		return nil
	}, th.CommandEqual("stats"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		reply := b.Router.Broadcast(ctx.Context(), fromUser(message.From), commandArgs(message.Text))
		b.send(ctx.Context(), message.Chat.ID, reply)
		return nil
	}, th.CommandEqual("broadcast"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))

		reply := b.Router.Callback(ctx.Context(), fromUser(&callback.From), callback.Data)
		b.send(ctx.Context(), callback.From.ID, reply)
		return nil
	}, th.AnyCallbackQuery())

	// Free text that is not a command.
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message.From == nil {
			return nil
		}
		reply := b.Router.Text(ctx.Context(), fromUser(message.From), message.Text)
		b.send(ctx.Context(), message.Chat.ID, reply)
		return nil
	}, th.AnyMessageWithText(), th.Not(th.AnyCommand()))

	log.Println("Bot handler started")
	return handler.Start()
}

func (b *Bot) send(ctx context.Context, chatID int64, reply Reply) {
	if reply.Text == "" {
		return
	}
	params := tu.Message(tu.ID(chatID), reply.Text)
	if reply.Markdown {
		params = params.WithParseMode(telego.ModeMarkdown)
	}
	if kb := keyboardFor(b.Links, reply); kb != nil {
		params = params.WithReplyMarkup(kb)
	}
	if _, err := b.Instance.SendMessage(ctx, params); err != nil {
		log.Printf("Failed to send reply to %d: %v", chatID, err)
	}
}

// Sender delivers plain text through the Bot API. It backs both the operator relay and broadcasts.
type Sender struct {
	Instance *telego.Bot
}

func NewSender(instance *telego.Bot) *Sender {
	return &Sender{Instance: instance}
}

func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := s.Instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

func fromUser(u *telego.User) From {
	if u == nil {
		return From{}
	}
	return From{ID: u.ID, Name: u.FirstName}
}

// commandArgs returns everything after the command word, e.g. "ref42" for "/start ref42".
// The command ends at the first whitespace rune, so "/broadcast\nHello" keeps "Hello".
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}
