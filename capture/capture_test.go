package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClipboard struct {
	mu     sync.Mutex
	text   string
	writes []string
	reads  int
	// onRead lets a test change the clipboard as reads happen.
	onRead func(n int) string
	getErr error
}

func (c *fakeClipboard) Get() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.getErr != nil {
		return "", c.getErr
	}
	if c.onRead != nil {
		if s := c.onRead(c.reads); s != "" {
			c.text = s
		}
	}
	return c.text, nil
}

func (c *fakeClipboard) Set(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.writes = append(c.writes, text)
	return nil
}

type fakeInjector struct {
	mu     sync.Mutex
	copies int
	onCopy func(n int)
}

func (f *fakeInjector) Name() string { return "fake" }

func (f *fakeInjector) SendCopy() {
	f.mu.Lock()
	f.copies++
	n := f.copies
	f.mu.Unlock()
	if f.onCopy != nil {
		f.onCopy(n)
	}
}

func (f *fakeInjector) SendPaste() {}
func (f *fakeInjector) ForegroundApp(ctx context.Context) string { return "" }
func (f *fakeInjector) ActivateApp(ctx context.Context, id string) {}

func fastTiming() Timing {
	return Timing{
		ClearSettle:   time.Millisecond,
		CopySettle:    time.Millisecond,
		RetryInterval: time.Millisecond,
		MaxRetries:    8,
		RecopyAttempt: 3,
	}
}

func TestCaptureFirstRead(t *testing.T) {
	clip := &fakeClipboard{text: "OLD"}
	inj := &fakeInjector{}
	inj.onCopy = func(int) { clip.Set("selected text") }

	got := NewService(clip, inj, fastTiming()).Capture(context.Background())
	if got != "selected text" {
		t.Fatalf("Capture = %q", got)
	}
	if clip.writes[0] != "" {
		t.Fatalf("clipboard was not cleared first: %q", clip.writes)
	}
	if inj.copies != 1 || clip.reads != 1 {
		t.Fatalf("expected one copy and one read, got %d copies %d reads", inj.copies, clip.reads)
	}
}

func TestCaptureStaleClipboardNeverLeaks(t *testing.T) {
	clip := &fakeClipboard{text: "OLD"}
	inj := &fakeInjector{}

	got := NewService(clip, inj, fastTiming()).Capture(context.Background())
	if got != "" {
		t.Fatalf("expected empty capture, got %q", got)
	}
	// One initial read plus every retry.
	if clip.reads != 9 {
		t.Fatalf("expected 9 reads, got %d", clip.reads)
	}
	// Initial copy plus the single re-copy.
	if inj.copies != 2 {
		t.Fatalf("expected 2 copy keystrokes, got %d", inj.copies)
	}
}

func TestCaptureRecopyBeforeFourthRetry(t *testing.T) {
	clip := &fakeClipboard{}
	inj := &fakeInjector{}
	reads := 0
	inj.onCopy = func(n int) {
		reads = clip.reads
		if n == 2 {
			clip.Set("late selection")
		}
	}

	got := NewService(clip, inj, fastTiming()).Capture(context.Background())
	if got != "late selection" {
		t.Fatalf("Capture = %q", got)
	}
	// Initial read plus three blank retries happen before the re-copy.
	if reads != 4 {
		t.Fatalf("re-copy happened after %d reads, want 4", reads)
	}
}

func TestCaptureTreatsWhitespaceAsBlank(t *testing.T) {
	clip := &fakeClipboard{}
	clip.onRead = func(n int) string {
		if n < 3 {
			return " \n\t"
		}
		return "text"
	}

	got := NewService(clip, &fakeInjector{}, fastTiming()).Capture(context.Background())
	if got != "text" {
		t.Fatalf("Capture = %q", got)
	}
}

func TestCaptureReadErrorsDegradeToEmpty(t *testing.T) {
	clip := &fakeClipboard{getErr: errors.New("clipboard locked")}
	if got := NewService(clip, &fakeInjector{}, fastTiming()).Capture(context.Background()); got != "" {
		t.Fatalf("expected empty capture, got %q", got)
	}
}

func TestCaptureStopsOnContextCancel(t *testing.T) {
	clip := &fakeClipboard{}
	timing := fastTiming()
	timing.RetryInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan string)
	go func() { done <- NewService(clip, &fakeInjector{}, timing).Capture(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		if got != "" {
			t.Fatalf("expected empty capture, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not return after cancel")
	}
}

func TestCaptureRecoversPanics(t *testing.T) {
	inj := &fakeInjector{onCopy: func(int) { panic("boom") }}
	if got := NewService(&fakeClipboard{}, inj, fastTiming()).Capture(context.Background()); got != "" {
		t.Fatalf("expected empty capture, got %q", got)
	}
}
