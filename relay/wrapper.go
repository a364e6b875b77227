package relay

import (
	"path/filepath"

	"github.com/fzxiao233/Tg_ClipRelay/config"
	"github.com/fzxiao233/Tg_ClipRelay/relay/interfaces"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker/downloader"
	"github.com/fzxiao233/Tg_ClipRelay/utils"
	log "github.com/sirupsen/logrus"
)

// StartRequest snapshots the config into the worker's explicit inputs
// and drives one delivery to completion. The worker itself never reads
// global config, so a hot reload mid-delivery cannot change a request
// already underway. Each request gets its own scratch dir, keyed by
// the request id, so concurrent requests for the same URL never share
// files.
func StartRequest(req *interfaces.RequestInfo, sink worker.ReplySink, pm *worker.PluginManager) *worker.ProcessRequest {
	cfg := config.Config
	limits := worker.Limits{
		InlineLimit: cfg.InlineLimit,
		PartSize:    cfg.PartSize,
	}
	scratch := filepath.Join(cfg.ScratchDir, "clip-"+req.ID)
	if _, err := utils.MakeDir(scratch); err != nil {
		log.WithField("request", req).Warnf("Failed to create scratch dir %s: %v", scratch, err)
	}
	fetcher := downloader.GetFetcher(cfg.FetchProvider)
	return worker.StartProcessRequest(req, sink, fetcher, limits, scratch, cfg.CookiesFile, pm)
}
