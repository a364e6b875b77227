package plugins

import (
	"github.com/fzxiao233/Tg_ClipRelay/config"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker"
	"github.com/fzxiao233/Tg_ClipRelay/utils"
	log "github.com/sirupsen/logrus"
)

// ArchiveConfig is the optional "archive" group of the config file.
// Dir may be a local path or any rclone remote.
type ArchiveConfig struct {
	Enable bool
	Dir    string
}

type PluginArchive struct {
}

func archiveOptions() (*ArchiveConfig, error) {
	raw, ok := config.Config.ExtraConfig["archive"]
	if !ok {
		return nil, nil
	}
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	conf := &ArchiveConfig{}
	err := utils.MapToStruct(rawMap, conf)
	if err != nil {
		return nil, err
	}
	return conf, nil
}

func (p *PluginArchive) RequestStart(process *worker.ProcessRequest) error {
	return nil
}

// UploadDone runs before the request's cleanup pass, so the media file
// is still on disk and can be moved away instead of deleted.
func (p *PluginArchive) UploadDone(process *worker.ProcessRequest) error {
	conf, err := archiveOptions()
	if err != nil {
		return err
	}
	if conf == nil || !conf.Enable || conf.Dir == "" {
		return nil
	}
	err = utils.MoveFiles(process.Media.Path, conf.Dir)
	if err != nil {
		return err
	}
	log.Infof("Archived %s to %s", process.Media.Path, conf.Dir)
	return nil
}

func (p *PluginArchive) RequestEnd(process *worker.ProcessRequest) error {
	return nil
}
