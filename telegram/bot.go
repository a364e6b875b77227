package telegram

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fzxiao233/Tg_ClipRelay/config"
	"github.com/fzxiao233/Tg_ClipRelay/relay"
	"github.com/fzxiao233/Tg_ClipRelay/relay/interfaces"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const helpText = "Send me a YouTube URL or use /dl <URL>\n" +
	"I try to download a low-res copy (<=360p) and send it here.\n" +
	"If content requires login/age-check, set YTDLP_COOKIES_CONTENT env (cookies.txt content)."

var urlRe = regexp.MustCompile(`https?://\S+`)

// ExtractURL returns the first http(s) URL in text, or an empty string.
func ExtractURL(text string) string {
	return urlRe.FindString(text)
}

// Bot API floods get throttled at 30 msg/sec, stay under that.
var limit *rate.Limiter

func init() {
	limit = rate.NewLimiter(rate.Every(time.Second/25), 5)
}

// API is the slice of the tgbotapi client the bot drives.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api     API
	plugins *worker.PluginManager

	// seen dedups update ids across long-poll retries
	seen  *lru.Cache
	edits *cache.Cache

	updateTimeout int
	editInterval  time.Duration
	active        sync.WaitGroup
}

func NewBot(api API, pm *worker.PluginManager) *Bot {
	cfg := config.Config
	seen, _ := lru.New(4096)
	return &Bot{
		api:           api,
		plugins:       pm,
		seen:          seen,
		edits:         cache.New(time.Duration(cfg.EditIntervalSec)*time.Second, time.Minute),
		updateTimeout: cfg.UpdateTimeout,
		editInterval:  time.Duration(cfg.EditIntervalSec) * time.Second,
	}
}

// Run long-polls for updates and spawns one delivery goroutine per
// message. It returns once Stop is called and every in-flight delivery
// has finished.
func (b *Bot) Run() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.updateTimeout
	updates := b.api.GetUpdatesChan(u)
	log.Infof("Start to receive updates")

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if b.seen.Contains(update.UpdateID) {
			continue
		}
		b.seen.Add(update.UpdateID, true)

		message := update.Message
		b.active.Add(1)
		go func() {
			defer b.active.Done()
			b.handleMessage(message)
		}()
	}

	b.active.Wait()
	return nil
}

// Stop closes the update stream; Run drains what is already underway.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.Text == "" {
		return
	}
	if message.IsCommand() {
		switch message.Command() {
		case "start", "help":
			b.replyText(message, helpText)
		case "dl":
			args := strings.Fields(message.CommandArguments())
			if len(args) == 0 {
				b.replyText(message, "Usage: /dl <URL>")
				return
			}
			b.startDelivery(message, args[0])
		}
		return
	}

	url := ExtractURL(message.Text)
	if url == "" {
		return
	}
	b.startDelivery(message, url)
}

func (b *Bot) startDelivery(message *tgbotapi.Message, url string) {
	requester := ""
	if message.From != nil {
		requester = message.From.UserName
	}
	req := &interfaces.RequestInfo{
		ID:        uuid.New().String(),
		URL:       url,
		ChatID:    message.Chat.ID,
		MessageID: message.MessageID,
		Requester: requester,
		RecvTime:  time.Now(),
	}
	relay.StartRequest(req, b.newReporter(message.Chat.ID, message.MessageID), b.plugins)
}

func (b *Bot) replyText(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	_ = limit.Wait(context.Background())
	if _, err := b.api.Send(msg); err != nil {
		log.Warnf("Failed to send reply: %v", err)
	}
}
