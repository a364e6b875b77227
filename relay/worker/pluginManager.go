package worker

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// PluginCallback hooks the delivery lifecycle. RequestStart fires once
// a request is accepted, UploadDone after the last successful upload
// and before cleanup, RequestEnd at the terminal state. Errors are
// logged and never affect the delivery outcome.
type PluginCallback interface {
	RequestStart(p *ProcessRequest) error
	UploadDone(p *ProcessRequest) error
	RequestEnd(p *ProcessRequest) error
}

type PluginManager struct {
	plugins []PluginCallback
}

func (p *PluginManager) AddPlugin(plug PluginCallback) {
	p.plugins = append(p.plugins, plug)
}

func (p *PluginManager) fanout(fn func(plug PluginCallback) error) {
	var wg sync.WaitGroup
	wg.Add(len(p.plugins))
	for _, plug := range p.plugins {
		go func(plug PluginCallback) {
			defer wg.Done()
			err := fn(plug)
			if err != nil {
				log.Warnf("Plugin error: %v", err)
			}
		}(plug)
	}
	wg.Wait()
}

func (p *PluginManager) OnRequestStart(req *ProcessRequest) {
	p.fanout(func(plug PluginCallback) error { return plug.RequestStart(req) })
}

func (p *PluginManager) OnUploadDone(req *ProcessRequest) {
	p.fanout(func(plug PluginCallback) error { return plug.UploadDone(req) })
}

func (p *PluginManager) OnRequestEnd(req *ProcessRequest) {
	p.fanout(func(plug PluginCallback) error { return plug.RequestEnd(req) })
}
