package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fzxiao233/Tg_ClipRelay/relay/interfaces"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker/segment"
	log "github.com/sirupsen/logrus"
)

// State of a delivery as it moves through the pipeline.
type State string

const (
	StateQueued      State = "queued"
	StateDownloading State = "downloading"
	StateSizeCheck   State = "size_check"
	StateDirectSend  State = "direct_send"
	StateSplitting   State = "splitting"
	StatePartUpload  State = "part_upload"
	StateCleanup     State = "cleanup"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ReplySink is the chat side of a delivery. Ack creates the status
// message, Progress and Finish edit it in place, SendFile uploads one
// attachment. Only SendFile errors decide the request outcome; status
// edit failures are logged and ignored.
type ReplySink interface {
	Ack(text string) error
	Progress(text string) error
	SendFile(path string) error
	Finish(text string) error
}

// MediaFetcher resolves a URL into a local media file under destDir.
type MediaFetcher interface {
	FetchMedia(req *interfaces.RequestInfo, destDir string, cookieFile string) (string, error)
}

// Limits is the per-request snapshot of the delivery thresholds. The
// worker never reads global config; the caller passes everything in.
type Limits struct {
	InlineLimit int64
	PartSize    int64
}

type MediaFile struct {
	Path string
	Size int64
}

type ProcessRequest struct {
	Request *interfaces.RequestInfo
	Sink    ReplySink
	Fetcher MediaFetcher
	Plugins *PluginManager
	Limits  Limits

	// ScratchDir is this request's private working directory; the
	// whole directory is reclaimed during cleanup.
	ScratchDir string
	CookieFile string

	State     State
	Media     MediaFile
	Parts     []segment.Part
	Uploaded  int
	Err       error
	StartTime time.Time
	EndTime   time.Time

	cleaned bool
	logger  *log.Entry
}

// StartProcessRequest drives one delivery to its terminal state. It
// blocks until the request is done or failed and every artifact has
// been reclaimed.
func StartProcessRequest(req *interfaces.RequestInfo, sink ReplySink, fetcher MediaFetcher,
	limits Limits, scratchDir string, cookieFile string, plugins *PluginManager) *ProcessRequest {
	p := &ProcessRequest{
		Request:    req,
		Sink:       sink,
		Fetcher:    fetcher,
		Plugins:    plugins,
		Limits:     limits,
		ScratchDir: scratchDir,
		CookieFile: cookieFile,
		State:      StateQueued,
		StartTime:  time.Now(),
		logger:     log.WithField("request", req),
	}
	p.runRequest()
	return p
}

func (p *ProcessRequest) runRequest() {
	p.logger.Infof("start to process")
	p.Plugins.OnRequestStart(p)
	defer func() {
		p.EndTime = time.Now()
		p.Plugins.OnRequestEnd(p)
	}()

	if err := p.Sink.Ack(fmt.Sprintf("Queued: %s\nStarting download...", p.Request.URL)); err != nil {
		p.logger.Warnf("Failed to send ack: %v", err)
	}

	p.setState(StateDownloading)
	res := <-offloadFetch(func() (string, error) {
		return p.Fetcher.FetchMedia(p.Request, p.ScratchDir, p.CookieFile)
	})
	if res.err != nil {
		p.fail(&DownloadError{Err: res.err},
			fmt.Sprintf("❌ Download failed: %v%s", res.err, RestrictionHint(res.err.Error())))
		return
	}
	p.Media.Path = res.path

	p.setState(StateSizeCheck)
	fi, err := os.Stat(p.Media.Path)
	if err != nil {
		p.fail(&AccessError{Err: err}, fmt.Sprintf("Downloaded but failed to access file: %v", err))
		return
	}
	p.Media.Size = fi.Size()

	if p.Media.Size <= p.Limits.InlineLimit {
		p.sendWhole()
	} else {
		p.sendParts()
	}
}

func (p *ProcessRequest) sendWhole() {
	p.setState(StateDirectSend)
	p.progress(fmt.Sprintf("Uploading %s (%s)...",
		filepath.Base(p.Media.Path), humanize.IBytes(uint64(p.Media.Size))))
	if err := p.Sink.SendFile(p.Media.Path); err != nil {
		p.fail(&UploadError{Err: err}, fmt.Sprintf("Upload failed: %v", err))
		return
	}
	p.Uploaded++
	p.finishOK("✅ Done — file sent.")
}

func (p *ProcessRequest) sendParts() {
	p.setState(StateSplitting)
	p.progress(fmt.Sprintf("File is %s (>%s). Splitting into parts...",
		humanize.IBytes(uint64(p.Media.Size)), humanize.IBytes(uint64(p.Limits.InlineLimit))))
	res := <-offloadSplit(func() ([]segment.Part, error) {
		return segment.Split(p.Media.Path, p.Limits.PartSize)
	})
	p.Parts = res.parts
	if res.err != nil {
		p.fail(&SplitError{Err: res.err}, fmt.Sprintf("Failed to split/upload parts: %v", res.err))
		return
	}
	p.logger.Infof("Split %s into %d parts", filepath.Base(p.Media.Path), len(p.Parts))

	p.setState(StatePartUpload)
	for _, part := range p.Parts {
		p.logger.Infof("Uploading part %d/%d (%s)",
			part.Seq, len(p.Parts), humanize.IBytes(uint64(part.Size)))
		if err := p.Sink.SendFile(part.Path); err != nil {
			p.fail(&UploadError{Err: err}, fmt.Sprintf("Failed to split/upload parts: %v", err))
			return
		}
		p.Uploaded++
		if err := os.Remove(part.Path); err != nil {
			p.logger.Warnf("Failed to remove sent part %s: %v", part.Path, err)
		}
	}
	p.finishOK("✅ Done — big file sent in parts.")
}

func (p *ProcessRequest) finishOK(text string) {
	p.setState(StateCleanup)
	p.Plugins.OnUploadDone(p)
	p.cleanup()
	if err := p.Sink.Finish(text); err != nil {
		p.logger.Warnf("Failed to edit status: %v", err)
	}
	p.setState(StateDone)
	p.logger.Infof("Delivered %s (%d uploads)", humanize.IBytes(uint64(p.Media.Size)), p.Uploaded)
}

func (p *ProcessRequest) fail(cause error, text string) {
	p.Err = cause
	p.logger.Warnf("Delivery failed (%s): %v", FailKind(cause), cause)
	p.setState(StateCleanup)
	p.cleanup()
	if err := p.Sink.Finish(text); err != nil {
		p.logger.Warnf("Failed to edit status: %v", err)
	}
	p.setState(StateFailed)
}

func (p *ProcessRequest) progress(text string) {
	if err := p.Sink.Progress(text); err != nil {
		p.logger.Warnf("Failed to edit status: %v", err)
	}
}

func (p *ProcessRequest) setState(s State) {
	p.logger.Debugf("state %s -> %s", p.State, s)
	p.State = s
}

// cleanup removes every artifact this request produced: the media
// file, any parts not yet deleted, then the scratch dir with whatever
// the download tool left behind. Removal errors are logged and
// swallowed; a failed delete never changes the request outcome, and
// already-gone files are expected here.
func (p *ProcessRequest) cleanup() {
	if p.cleaned {
		return
	}
	p.cleaned = true

	targets := make([]string, 0, len(p.Parts)+1)
	if p.Media.Path != "" {
		targets = append(targets, p.Media.Path)
	}
	for _, part := range p.Parts {
		targets = append(targets, part.Path)
	}
	for _, path := range targets {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			p.logger.Warnf("Cleanup failed for %s: %v", path, err)
		}
	}
	if p.ScratchDir != "" {
		if err := os.RemoveAll(p.ScratchDir); err != nil {
			p.logger.Warnf("Cleanup failed for %s: %v", p.ScratchDir, err)
		}
	}
}

// Succeeded reports whether the delivery reached its terminal state
// without a failure.
func (p *ProcessRequest) Succeeded() bool {
	return p.Err == nil
}

// Elapsed is the wall time of the delivery so far, or its total once
// the request is terminal.
func (p *ProcessRequest) Elapsed() time.Duration {
	if p.EndTime.IsZero() {
		return time.Since(p.StartTime)
	}
	return p.EndTime.Sub(p.StartTime)
}
