package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

// captureClient returns an enabled client whose writes land on the returned
// channel, one line per emit.
func captureClient(t *testing.T, prefix string, base map[string]string) (*Client, <-chan string) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})

	lines := make(chan string, 8)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := remote.Read(buf)
			if err != nil {
				return
			}
			lines <- string(buf[:n])
		}
	}()

	return &Client{
		prefix:  prefix,
		base:    mergeTags(nil, base),
		conn:    local,
		enabled: true,
	}, lines
}

func recvLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line := <-lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("no metric line received")
		return ""
	}
}

func TestClient_CountLine(t *testing.T) {
	t.Parallel()

	client, lines := captureClient(t, "dispatcher", map[string]string{"env": "test"})
	client.Count("job.transition", 2, map[string]string{"result": "success"})

	got := recvLine(t, lines)
	want := "dispatcher.job.transition:2|c|#env:test,result:success"
	if got != want {
		t.Fatalf("count line = %q, want %q", got, want)
	}
}

func TestClient_GaugeAndTimingLines(t *testing.T) {
	t.Parallel()

	client, lines := captureClient(t, "", nil)

	client.Gauge("queue.depth", 12.5, nil)
	if got := recvLine(t, lines); got != "queue.depth:12.5|g" {
		t.Fatalf("gauge line = %q", got)
	}

	client.Timing("job.duration", 1500*time.Millisecond, nil)
	if got := recvLine(t, lines); got != "job.duration:1500|ms" {
		t.Fatalf("timing line = %q", got)
	}
}

func TestClient_LocalTagsOverrideGlobals(t *testing.T) {
	t.Parallel()

	client, lines := captureClient(t, "", map[string]string{"env": "prod", " service ": " dispatcher "})
	client.Count("sync.run", 1, map[string]string{"env": "stage", "": "dropped"})

	got := recvLine(t, lines)
	want := "sync.run:1|c|#env:stage,service:dispatcher"
	if got != want {
		t.Fatalf("tag merge line = %q, want %q", got, want)
	}
}

func TestClient_EmptyNameIsDropped(t *testing.T) {
	t.Parallel()

	client, lines := captureClient(t, "dispatcher", nil)
	client.Count("   ", 1, nil)
	client.Count("...", 1, nil)

	select {
	case line := <-lines:
		t.Fatalf("unexpected metric line %q", line)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":     "job_metric",
		"foo..bar":         "foo.bar",
		"bad:chars|here#x": "bad_chars_here_x",
		".edge.":           "edge",
		"":                 "",
	}
	for input, want := range tests {
		if got := cleanName(input); got != want {
			t.Fatalf("cleanName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestClient_EnabledAndClose(t *testing.T) {
	t.Parallel()

	client, _ := captureClient(t, "", nil)
	if !client.Enabled() {
		t.Fatal("client with live socket should report enabled")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("closed client should report disabled")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	// Emitting after Close is a silent no-op.
	client.Count("job.transition", 1, nil)

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close error: %v", err)
	}
	nilClient.Count("job.transition", 1, nil)
}

func TestNewClient_DisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "  "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("blank address must leave the client disabled")
	}
}

func TestNewClient_DialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "not an address"})
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
