package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/wesm/chatvault/internal/importer"
	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/testutil"
)

func TestCLIProgress_NonInteractiveLinePerChannel(t *testing.T) {
	var buf bytes.Buffer
	p := &CLIProgress{out: &buf}

	p.OnStart(2, 1500)
	p.OnChannel("General", importer.Channel{Kind: store.KindText, Name: "chat"}, false)
	p.OnChannel("General", importer.Channel{Kind: store.KindVoice, Name: "voice"}, true)
	p.OnComplete(&importer.BuildSummary{})

	got := buf.String()
	testutil.AssertContainsAll(t, got, []string{
		"Loaded 2 channels, 1,500 messages",
		"General/chat: inserted",
		"General/voice: skipped (voice)",
	})
	if strings.Contains(got, "\r") {
		t.Errorf("non-interactive output contains carriage returns: %q", got)
	}
}

func TestCLIProgress_InteractiveRedrawsOneLine(t *testing.T) {
	var buf bytes.Buffer
	p := &CLIProgress{out: &buf, interactive: true}

	p.OnStart(3, 10)
	p.OnChannel("General", importer.Channel{Kind: store.KindText, Name: "a"}, false)
	p.OnChannel("General", importer.Channel{Kind: store.KindVoice, Name: "b"}, true)

	if !strings.Contains(buf.String(), "\r  Channels: 2/3 | Skipped: 1") {
		t.Errorf("unexpected progress output: %q", buf.String())
	}
}

func TestCLIProgress_OnChannelBeforeOnStart(t *testing.T) {
	p := &CLIProgress{out: &bytes.Buffer{}}
	p.OnChannel("General", importer.Channel{Name: "a"}, false)

	if p.startTime.IsZero() {
		t.Fatal("startTime should be initialized when OnChannel is called before OnStart")
	}
}

func TestCLIProgress_OnStartResetsForReuse(t *testing.T) {
	p := &CLIProgress{out: &bytes.Buffer{}}
	p.OnStart(1, 1)
	p.OnChannel("General", importer.Channel{Name: "a"}, true)
	first := p.startTime

	time.Sleep(5 * time.Millisecond)
	p.OnStart(2, 2)

	if !p.startTime.After(first) {
		t.Fatal("OnStart should reset startTime on subsequent calls")
	}
	if p.done != 0 || p.skipped != 0 {
		t.Fatalf("counters not reset: done=%d skipped=%d", p.done, p.skipped)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1400 * time.Millisecond, "1s"},
		{65 * time.Second, "1m5s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h2m3s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
