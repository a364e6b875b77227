package downloader

import (
	"fmt"
	"time"

	"github.com/fzxiao233/Tg_ClipRelay/relay/interfaces"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker/downloader/provytdlp"
	"github.com/fzxiao233/Tg_ClipRelay/utils"
	log "github.com/sirupsen/logrus"
)

// FetchProvider downloads the media behind a URL into destDir and
// returns the produced file path.
type FetchProvider interface {
	StartFetch(req *interfaces.RequestInfo, destDir string, cookieFile string) (string, error)
}

type Fetcher struct {
	prov FetchProvider
}

// FetchMedia runs the provider and verifies the artifact actually
// landed on disk before handing the path back.
func (d *Fetcher) FetchMedia(req *interfaces.RequestInfo, destDir string, cookieFile string) (string, error) {
	logger := log.WithField("request", req)
	logger.Infof("start to fetch")
	start := time.Now()
	path, err := d.prov.StartFetch(req, destDir, cookieFile)
	if err != nil {
		return "", err
	}
	if !utils.IsFileExist(path) {
		logger.Infof("%s the media file don't exist", path)
		return "", fmt.Errorf("fetched file %s does not exist", path)
	}
	logger.Infof("%s fetched successfully in %s", path, time.Since(start).Round(time.Millisecond))
	return path, nil
}

func GetFetcher(providerName string) *Fetcher {
	if providerName == "" || providerName == "ytdlp" {
		return &Fetcher{&provytdlp.ProviderYtdlp{}}
	}
	log.Fatalf("Unknown fetch provider %s", providerName)
	return nil
}
