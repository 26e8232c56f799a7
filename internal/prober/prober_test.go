package prober

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/useragent"
)

func testPool() *useragent.Pool {
	return useragent.Load("/nonexistent", "test-agent/1.0", silentLogger())
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// hostOf strips the scheme from an httptest server URL so Probe can rebuild
// it as https://<hostname>
func hostOf(t *testing.T, serverURL string) string {
	t.Helper()
	return strings.TrimPrefix(serverURL, "https://")
}

func TestProbeSucceeded(t *testing.T) {
	var gotUA string
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><title>hello</title></html>"))
	}))
	defer ts.Close()

	p := NewWithClient(ts.Client(), testPool(), silentLogger())
	res := p.Probe(context.Background(), hostOf(t, ts.URL))

	if res.Outcome != Succeeded {
		t.Fatalf("Outcome = %v, want Succeeded", res.Outcome)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(res.Body, "<title>hello</title>") {
		t.Errorf("Body = %q, want the served page", res.Body)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want the pool sample", gotUA)
	}
}

func TestProbeNonOKStatusStillSucceeds(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewWithClient(ts.Client(), testPool(), silentLogger())
	res := p.Probe(context.Background(), hostOf(t, ts.URL))

	if res.Outcome != Succeeded {
		t.Fatalf("Outcome = %v, want Succeeded (host answered)", res.Outcome)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", res.StatusCode)
	}
}

func TestProbeWildcardSkipped(t *testing.T) {
	p := NewWithClient(http.DefaultClient, testPool(), silentLogger())
	res := p.Probe(context.Background(), "*.example.com")

	if res.Outcome != Skipped {
		t.Fatalf("Outcome = %v, want Skipped", res.Outcome)
	}
}

func TestProbeTLSFailure(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	// Plain client: the server's self-signed certificate is not trusted.
	client := &http.Client{Timeout: 5 * time.Second}
	p := NewWithClient(client, testPool(), silentLogger())
	res := p.Probe(context.Background(), hostOf(t, ts.URL))

	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want Failed", res.Outcome)
	}
	if res.Reason != ReasonTLS {
		t.Errorf("Reason = %v, want ReasonTLS", res.Reason)
	}
}

func TestProbeFailureLogsReasonLabel(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	// Plain client, so the self-signed certificate fails verification.
	client := &http.Client{Timeout: 5 * time.Second}
	p := NewWithClient(client, testPool(), logger)
	res := p.Probe(context.Background(), hostOf(t, ts.URL))

	if res.Reason != ReasonTLS {
		t.Fatalf("Reason = %v, want ReasonTLS", res.Reason)
	}
	if !strings.Contains(buf.String(), ReasonTLS.String()) {
		t.Errorf("log missing %q:\n%s", ReasonTLS.String(), buf.String())
	}
}

func TestProbeConnectionFailure(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := hostOf(t, ts.URL)
	client := ts.Client()
	ts.Close() // nothing listens there any more

	p := NewWithClient(client, testPool(), silentLogger())
	res := p.Probe(context.Background(), host)

	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want Failed", res.Outcome)
	}
	if res.Reason != ReasonConnection {
		t.Errorf("Reason = %v, want ReasonConnection", res.Reason)
	}
}
