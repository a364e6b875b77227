package worker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fzxiao233/Tg_ClipRelay/relay/interfaces"
)

type recordedUpload struct {
	path string
	size int64
}

type mockSink struct {
	acks         []string
	progress     []string
	uploads      []recordedUpload
	finals       []string
	failUploadAt int // 1-based upload index to reject, 0 = never
}

func (m *mockSink) Ack(text string) error {
	m.acks = append(m.acks, text)
	return nil
}

func (m *mockSink) Progress(text string) error {
	m.progress = append(m.progress, text)
	return nil
}

func (m *mockSink) SendFile(path string) error {
	if m.failUploadAt != 0 && len(m.uploads)+1 == m.failUploadAt {
		return errors.New("Request Entity Too Large")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	m.uploads = append(m.uploads, recordedUpload{path: path, size: fi.Size()})
	return nil
}

func (m *mockSink) Finish(text string) error {
	m.finals = append(m.finals, text)
	return nil
}

type stubFetcher struct {
	size    int
	err     error
	missing bool // report a path without writing the file
}

func (s *stubFetcher) FetchMedia(req *interfaces.RequestInfo, destDir string, cookieFile string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	path := filepath.Join(destDir, "abc.mp4")
	if s.missing {
		return path, nil
	}
	data := make([]byte, s.size)
	for i := range data {
		data[i] = byte(i)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func testRequest() *interfaces.RequestInfo {
	return &interfaces.RequestInfo{
		ID:        "test-request",
		URL:       "https://example.com/v/1",
		ChatID:    42,
		MessageID: 7,
		Requester: "alice",
		RecvTime:  time.Now(),
	}
}

func runDelivery(t *testing.T, fetcher MediaFetcher, sink *mockSink, limits Limits) (*ProcessRequest, string) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "clip-test")
	if err := os.MkdirAll(scratch, 0755); err != nil {
		t.Fatal(err)
	}
	p := StartProcessRequest(testRequest(), sink, fetcher, limits, scratch, "", &PluginManager{})
	return p, scratch
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s survived cleanup (stat err = %v)", path, err)
	}
}

func TestDeliverWholeFile(t *testing.T) {
	sink := &mockSink{}
	p, scratch := runDelivery(t, &stubFetcher{size: 20}, sink, Limits{InlineLimit: 50, PartSize: 48})

	if p.State != StateDone {
		t.Fatalf("State = %s, want %s", p.State, StateDone)
	}
	if !p.Succeeded() {
		t.Errorf("Succeeded() = false, err = %v", p.Err)
	}
	if len(sink.acks) != 1 || !strings.Contains(sink.acks[0], "Queued: https://example.com/v/1") {
		t.Errorf("acks = %q", sink.acks)
	}
	if len(sink.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(sink.uploads))
	}
	if filepath.Base(sink.uploads[0].path) != "abc.mp4" || sink.uploads[0].size != 20 {
		t.Errorf("uploaded %+v", sink.uploads[0])
	}
	if len(sink.finals) != 1 || sink.finals[0] != "✅ Done — file sent." {
		t.Errorf("finals = %q", sink.finals)
	}
	assertGone(t, scratch)
}

func TestDeliverInParts(t *testing.T) {
	sink := &mockSink{}
	p, scratch := runDelivery(t, &stubFetcher{size: 120}, sink, Limits{InlineLimit: 50, PartSize: 48})

	if p.State != StateDone {
		t.Fatalf("State = %s, want %s (err %v)", p.State, StateDone, p.Err)
	}
	if len(sink.uploads) != 3 {
		t.Fatalf("uploads = %d, want 3", len(sink.uploads))
	}
	wantSizes := []int64{48, 48, 24}
	for i, up := range sink.uploads {
		wantName := fmt.Sprintf("abc.mp4.part%03d", i+1)
		if filepath.Base(up.path) != wantName {
			t.Errorf("upload %d = %s, want %s", i, filepath.Base(up.path), wantName)
		}
		if up.size != wantSizes[i] {
			t.Errorf("upload %d size = %d, want %d", i, up.size, wantSizes[i])
		}
	}
	if p.Uploaded != 3 {
		t.Errorf("Uploaded = %d, want 3", p.Uploaded)
	}
	if len(sink.progress) == 0 || !strings.Contains(sink.progress[0], "Splitting into parts") {
		t.Errorf("progress = %q", sink.progress)
	}
	if len(sink.finals) != 1 || sink.finals[0] != "✅ Done — big file sent in parts." {
		t.Errorf("finals = %q", sink.finals)
	}
	assertGone(t, scratch)
}

func TestThresholdBoundary(t *testing.T) {
	t.Run("at limit stays whole", func(t *testing.T) {
		sink := &mockSink{}
		p, scratch := runDelivery(t, &stubFetcher{size: 50}, sink, Limits{InlineLimit: 50, PartSize: 48})
		if p.State != StateDone {
			t.Fatalf("State = %s (err %v)", p.State, p.Err)
		}
		if len(sink.uploads) != 1 || strings.Contains(sink.uploads[0].path, ".part") {
			t.Errorf("uploads = %+v, want the single whole file", sink.uploads)
		}
		assertGone(t, scratch)
	})
	t.Run("one byte over splits", func(t *testing.T) {
		sink := &mockSink{}
		p, scratch := runDelivery(t, &stubFetcher{size: 51}, sink, Limits{InlineLimit: 50, PartSize: 48})
		if p.State != StateDone {
			t.Fatalf("State = %s (err %v)", p.State, p.Err)
		}
		if len(sink.uploads) != 2 {
			t.Fatalf("uploads = %d, want 2", len(sink.uploads))
		}
		if sink.uploads[0].size != 48 || sink.uploads[1].size != 3 {
			t.Errorf("upload sizes = %+v", sink.uploads)
		}
		assertGone(t, scratch)
	})
}

func TestDownloadFailure(t *testing.T) {
	t.Run("restricted adds hint", func(t *testing.T) {
		cause := errors.New("ERROR: [youtube] abc: Private video. Sign in if you've been granted access")
		sink := &mockSink{}
		p, scratch := runDelivery(t, &stubFetcher{err: cause}, sink, Limits{InlineLimit: 50, PartSize: 48})

		if p.State != StateFailed {
			t.Fatalf("State = %s, want %s", p.State, StateFailed)
		}
		if FailKind(p.Err) != "download" {
			t.Errorf("FailKind = %s", FailKind(p.Err))
		}
		if len(sink.uploads) != 0 {
			t.Errorf("uploads = %d, want 0", len(sink.uploads))
		}
		if len(sink.finals) != 1 {
			t.Fatalf("finals = %q", sink.finals)
		}
		final := sink.finals[0]
		if !strings.HasPrefix(final, "❌ Download failed: ") || !strings.Contains(final, cause.Error()) {
			t.Errorf("final = %q does not carry the cause", final)
		}
		if !strings.Contains(final, "Hint: This video may require login/cookies.") {
			t.Errorf("final = %q misses the cookie hint", final)
		}
		assertGone(t, scratch)
	})
	t.Run("plain failure has no hint", func(t *testing.T) {
		cause := errors.New("ERROR: unable to download video data: timed out")
		sink := &mockSink{}
		p, _ := runDelivery(t, &stubFetcher{err: cause}, sink, Limits{InlineLimit: 50, PartSize: 48})

		if p.State != StateFailed {
			t.Fatalf("State = %s, want %s", p.State, StateFailed)
		}
		if strings.Contains(sink.finals[0], "Hint:") {
			t.Errorf("final = %q should not hint at cookies", sink.finals[0])
		}
	})
}

func TestAccessFailure(t *testing.T) {
	sink := &mockSink{}
	p, scratch := runDelivery(t, &stubFetcher{missing: true}, sink, Limits{InlineLimit: 50, PartSize: 48})

	if p.State != StateFailed {
		t.Fatalf("State = %s, want %s", p.State, StateFailed)
	}
	if FailKind(p.Err) != "access" {
		t.Errorf("FailKind = %s, want access", FailKind(p.Err))
	}
	if !strings.HasPrefix(sink.finals[0], "Downloaded but failed to access file: ") {
		t.Errorf("final = %q", sink.finals[0])
	}
	assertGone(t, scratch)
}

func TestWholeUploadFailure(t *testing.T) {
	sink := &mockSink{failUploadAt: 1}
	p, scratch := runDelivery(t, &stubFetcher{size: 20}, sink, Limits{InlineLimit: 50, PartSize: 48})

	if p.State != StateFailed {
		t.Fatalf("State = %s, want %s", p.State, StateFailed)
	}
	if FailKind(p.Err) != "upload" {
		t.Errorf("FailKind = %s, want upload", FailKind(p.Err))
	}
	if !strings.HasPrefix(sink.finals[0], "Upload failed: ") {
		t.Errorf("final = %q", sink.finals[0])
	}
	assertGone(t, scratch)
}

func TestPartUploadFailureCleansUp(t *testing.T) {
	sink := &mockSink{failUploadAt: 2}
	p, scratch := runDelivery(t, &stubFetcher{size: 120}, sink, Limits{InlineLimit: 50, PartSize: 48})

	if p.State != StateFailed {
		t.Fatalf("State = %s, want %s", p.State, StateFailed)
	}
	if len(sink.uploads) != 1 {
		t.Errorf("uploads = %d, want 1 before the failure", len(sink.uploads))
	}
	if !strings.HasPrefix(sink.finals[0], "Failed to split/upload parts: ") {
		t.Errorf("final = %q", sink.finals[0])
	}
	// already-produced parts and the original must be reclaimed
	assertGone(t, scratch)
}

type recorderPlugin struct {
	starts   int
	uploads  int
	ends     int
	endState State
}

func (r *recorderPlugin) RequestStart(p *ProcessRequest) error {
	r.starts++
	return nil
}

func (r *recorderPlugin) UploadDone(p *ProcessRequest) error {
	r.uploads++
	return nil
}

func (r *recorderPlugin) RequestEnd(p *ProcessRequest) error {
	r.ends++
	r.endState = p.State
	return nil
}

func TestPluginLifecycle(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rec := &recorderPlugin{}
		pm := &PluginManager{}
		pm.AddPlugin(rec)
		scratch := filepath.Join(t.TempDir(), "clip-test")
		if err := os.MkdirAll(scratch, 0755); err != nil {
			t.Fatal(err)
		}
		StartProcessRequest(testRequest(), &mockSink{}, &stubFetcher{size: 10},
			Limits{InlineLimit: 50, PartSize: 48}, scratch, "", pm)
		if rec.starts != 1 || rec.uploads != 1 || rec.ends != 1 {
			t.Errorf("plugin calls = %d/%d/%d, want 1/1/1", rec.starts, rec.uploads, rec.ends)
		}
		if rec.endState != StateDone {
			t.Errorf("endState = %s, want %s", rec.endState, StateDone)
		}
	})
	t.Run("failure skips UploadDone", func(t *testing.T) {
		rec := &recorderPlugin{}
		pm := &PluginManager{}
		pm.AddPlugin(rec)
		scratch := filepath.Join(t.TempDir(), "clip-test")
		if err := os.MkdirAll(scratch, 0755); err != nil {
			t.Fatal(err)
		}
		StartProcessRequest(testRequest(), &mockSink{}, &stubFetcher{err: errors.New("ERROR: boom")},
			Limits{InlineLimit: 50, PartSize: 48}, scratch, "", pm)
		if rec.starts != 1 || rec.uploads != 0 || rec.ends != 1 {
			t.Errorf("plugin calls = %d/%d/%d, want 1/0/1", rec.starts, rec.uploads, rec.ends)
		}
		if rec.endState != StateFailed {
			t.Errorf("endState = %s, want %s", rec.endState, StateFailed)
		}
	})
}

func TestRestrictionHint(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want bool
	}{
		{"login", "ERROR: Login required to access this video", true},
		{"private", "ERROR: Private video.", true},
		{"age", "ERROR: this clip is age-restricted", true},
		{"case insensitive", "ERROR: PRIVATE VIDEO", true},
		{"plain", "ERROR: HTTP Error 404", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RestrictionHint(tt.msg) != ""
			if got != tt.want {
				t.Errorf("RestrictionHint(%q) hint = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestFailKind(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", &SplitError{Err: errors.New("disk full")})
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"download", &DownloadError{Err: errors.New("x")}, "download"},
		{"access", &AccessError{Err: errors.New("x")}, "access"},
		{"upload", &UploadError{Err: errors.New("x")}, "upload"},
		{"split", &SplitError{Err: errors.New("x")}, "split"},
		{"wrapped", wrapped, "split"},
		{"unknown", errors.New("x"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailKind(tt.err); got != tt.want {
				t.Errorf("FailKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
