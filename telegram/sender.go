package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StatusReporter feeds one delivery's status back into its chat. Ack
// creates the status message as a reply to the request; Progress and
// Finish keep editing that same message instead of flooding the chat.
// Progress edits are throttled; the terminal Finish edit never is.
type StatusReporter struct {
	bot      *Bot
	chatID   int64
	replyTo  int
	statusID int
}

func (b *Bot) newReporter(chatID int64, replyTo int) *StatusReporter {
	return &StatusReporter{bot: b, chatID: chatID, replyTo: replyTo}
}

func (r *StatusReporter) Ack(text string) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyToMessageID = r.replyTo
	_ = limit.Wait(context.Background())
	sent, err := r.bot.api.Send(msg)
	if err != nil {
		return err
	}
	r.statusID = sent.MessageID
	return nil
}

func (r *StatusReporter) Progress(text string) error {
	if r.statusID == 0 {
		return r.Ack(text)
	}
	key := fmt.Sprintf("%d:%d", r.chatID, r.statusID)
	if _, throttled := r.bot.edits.Get(key); throttled {
		return nil
	}
	r.bot.edits.SetDefault(key, true)
	return r.edit(text)
}

func (r *StatusReporter) SendFile(path string) error {
	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FilePath(path))
	_ = limit.Wait(context.Background())
	_, err := r.bot.api.Send(doc)
	return err
}

func (r *StatusReporter) Finish(text string) error {
	if r.statusID == 0 {
		return r.Ack(text)
	}
	return r.edit(text)
}

func (r *StatusReporter) edit(text string) error {
	_ = limit.Wait(context.Background())
	_, err := r.bot.api.Send(tgbotapi.NewEditMessageText(r.chatID, r.statusID, text))
	return err
}
