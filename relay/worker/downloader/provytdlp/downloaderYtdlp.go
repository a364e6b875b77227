package provytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitly/go-simplejson"
	"github.com/fzxiao233/Tg_ClipRelay/relay/interfaces"
	"github.com/fzxiao233/Tg_ClipRelay/utils"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/semaphore"
)

// Every request spawns a yt-dlp process. Pace the spawns and bound how
// many run at once so a burst of chat messages cannot fork-bomb the
// host.
var rl = ratelimit.New(1)

var YtdlpSemaphore = semaphore.NewWeighted(3)

// FormatSpec keeps downloads small: 360p video plus audio, mp4
// preferred, falling back to the best single stream at that height.
const FormatSpec = "bestvideo[height<=360]+bestaudio/best[height<=360]/best"

type ProviderYtdlp struct {
}

func (d *ProviderYtdlp) StartFetch(req *interfaces.RequestInfo, destDir string, cookieFile string) (string, error) {
	logger := log.WithField("request", req)

	if err := YtdlpSemaphore.Acquire(context.Background(), 1); err != nil {
		return "", err
	}
	defer YtdlpSemaphore.Release(1)

	if err := d.probe(logger, req.URL, cookieFile); err != nil {
		return "", err
	}

	rl.Take()
	out, stderr, err := utils.ExecShellEx(logger, false, "yt-dlp",
		buildArgs(req.URL, destDir, cookieFile)...)
	if err != nil {
		return "", toolError(stderr, err)
	}
	return locateMedia(logger, out, destDir)
}

// probe asks yt-dlp for the metadata first. It surfaces restriction
// errors before any bytes are transferred and refuses live streams,
// which would otherwise record without end.
func (d *ProviderYtdlp) probe(logger *log.Entry, url string, cookieFile string) error {
	arg := []string{"-J", "--no-playlist"}
	if cookieFile != "" && utils.IsFileExist(cookieFile) {
		arg = append(arg, "--cookies", cookieFile)
	}
	arg = append(arg, url)

	rl.Take()
	out, stderr, err := utils.ExecShellEx(logger, false, "yt-dlp", arg...)
	if err != nil {
		return toolError(stderr, err)
	}
	return liveGuard(out)
}

func liveGuard(infoJson string) error {
	if gjson.Get(infoJson, "is_live").Bool() {
		title := utils.RemoveIllegalChar(gjson.Get(infoJson, "title").String())
		return fmt.Errorf("live stream is not downloadable: %s", title)
	}
	return nil
}

func buildArgs(url string, destDir string, cookieFile string) []string {
	arg := []string{
		"-f", FormatSpec,
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--merge-output-format", "mp4",
		"--geo-bypass",
		"--retries", "3",
		"--skip-unavailable-fragments",
		"--print-json",
	}
	if cookieFile != "" && utils.IsFileExist(cookieFile) {
		arg = append(arg, "--cookies", cookieFile)
	}
	return append(arg, url)
}

// toolError condenses a yt-dlp failure to its ERROR line, the text the
// user-facing failure message carries.
func toolError(stderr string, err error) error {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return fmt.Errorf("%s", line)
		}
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("yt-dlp: %s", lastLine(msg))
	}
	return fmt.Errorf("yt-dlp: %v", err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// locateMedia resolves the downloaded file from the info JSON yt-dlp
// printed: the reported filename, its post-merge mp4 sibling, then a
// directory scan by video id.
func locateMedia(logger *log.Entry, infoJson string, destDir string) (string, error) {
	info, err := simplejson.NewJson([]byte(infoJson))
	if err != nil {
		logger.Warnf("Failed to parse yt-dlp output: %v", err)
	} else {
		filename := info.Get("_filename").MustString()
		if filename != "" {
			mp4 := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".mp4"
			if utils.IsFileExist(mp4) {
				return mp4, nil
			}
			if utils.IsFileExist(filename) {
				return filename, nil
			}
		}
		if id := info.Get("id").MustString(); id != "" {
			if path := scanById(destDir, id); path != "" {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("downloaded file not found in %s", destDir)
}

func scanById(destDir string, id string) string {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), id+".") {
			return filepath.Join(destDir, entry.Name())
		}
	}
	return ""
}
