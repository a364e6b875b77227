package worker

import (
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker/segment"
)

// The fetch and split calls block for minutes on big files. They run
// as explicit offload submissions: the request goroutine hands the
// call to a fresh goroutine and waits on the returned handle, keeping
// exactly one offload outstanding per request.

type fetchResult struct {
	path string
	err  error
}

func offloadFetch(fn func() (string, error)) <-chan fetchResult {
	ch := make(chan fetchResult, 1)
	go func() {
		path, err := fn()
		ch <- fetchResult{path: path, err: err}
	}()
	return ch
}

type splitResult struct {
	parts []segment.Part
	err   error
}

func offloadSplit(fn func() ([]segment.Part, error)) <-chan splitResult {
	ch := make(chan splitResult, 1)
	go func() {
		parts, err := fn()
		ch <- splitResult{parts: parts, err: err}
	}()
	return ch
}
