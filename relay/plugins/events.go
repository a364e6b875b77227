package plugins

import (
	"encoding/json"
	"time"

	"github.com/fzxiao233/Tg_ClipRelay/config"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker"
	"github.com/fzxiao233/Tg_ClipRelay/utils"
	log "github.com/sirupsen/logrus"
)

// DeliveryEvent mirrors one finished request onto the redis channel so
// downstream consumers can follow what the bot delivered.
type DeliveryEvent struct {
	Request    string  `json:"request"`
	URL        string  `json:"url"`
	ChatID     int64   `json:"chat_id"`
	Requester  string  `json:"requester"`
	State      string  `json:"state"`
	FailKind   string  `json:"fail_kind,omitempty"`
	Error      string  `json:"error,omitempty"`
	Bytes      int64   `json:"bytes"`
	Parts      int     `json:"parts"`
	Uploaded   int     `json:"uploaded"`
	FinishedAt string  `json:"finished_at"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

type PluginEvents struct {
}

func buildEvent(process *worker.ProcessRequest) DeliveryEvent {
	ev := DeliveryEvent{
		Request:    process.Request.ID,
		URL:        process.Request.URL,
		ChatID:     process.Request.ChatID,
		Requester:  process.Request.Requester,
		State:      string(process.State),
		Bytes:      process.Media.Size,
		Parts:      len(process.Parts),
		Uploaded:   process.Uploaded,
		FinishedAt: process.EndTime.Format(time.RFC3339),
		ElapsedSec: process.Elapsed().Seconds(),
	}
	if process.Err != nil {
		ev.FailKind = worker.FailKind(process.Err)
		ev.Error = process.Err.Error()
	}
	return ev
}

func (p *PluginEvents) RequestStart(process *worker.ProcessRequest) error {
	return nil
}

func (p *PluginEvents) UploadDone(process *worker.ProcessRequest) error {
	return nil
}

func (p *PluginEvents) RequestEnd(process *worker.ProcessRequest) error {
	ev := buildEvent(process)
	data, _ := json.Marshal(ev)
	log.Debug(string(data))
	return utils.Publish(data, config.Config.EventChannel)
}
