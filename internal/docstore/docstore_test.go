package docstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpraghav/orderwatch/internal/config"
)

func newTestExtractor(liveURL, histURL string) *Extractor {
	return NewExtractor(config.DocStoreConfig{
		LiveBaseURL:    liveURL + "/",
		HistBaseURL:    histURL + "/",
		AttemptTimeout: "2s",
	}, zerolog.Nop())
}

// minimalPDF builds a one-page PDF with a single text-showing content stream,
// computing the xref offsets as it goes.
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes()
}

func TestExtractEmptyRef(t *testing.T) {
	e := newTestExtractor("http://127.0.0.1:0", "http://127.0.0.1:0")
	assert.Equal(t, NoAttachmentText, e.Extract(context.Background(), ""))
}

func TestExtractFromLiveStore(t *testing.T) {
	pdf := minimalPDF("Order worth 150 crores")
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acme.pdf", r.URL.Path)
		_, _ = w.Write(pdf)
	}))
	defer live.Close()
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("historical store must not be hit when live store succeeds")
	}))
	defer hist.Close()

	text := newTestExtractor(live.URL, hist.URL).Extract(context.Background(), "acme.pdf")
	assert.Contains(t, text, "Order worth 150 crores")
}

func TestExtractFallsThroughToHistoricalStore(t *testing.T) {
	pdf := minimalPDF("historic order")
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer live.Close()

	var histHit bool
	var mu sync.Mutex
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		histHit = true
		mu.Unlock()
		_, _ = w.Write(pdf)
	}))
	defer hist.Close()

	text := newTestExtractor(live.URL, hist.URL).Extract(context.Background(), "old.pdf")
	assert.Contains(t, text, "historic order")
	assert.True(t, histHit)
}

func TestExtractAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	text := newTestExtractor(srv.URL, srv.URL).Extract(context.Background(), "gone.pdf")
	assert.Equal(t, ExtractionFailedText, text)
}

func TestExtractGarbageBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a pdf</html>")
	}))
	defer srv.Close()

	text := newTestExtractor(srv.URL, srv.URL).Extract(context.Background(), "fake.pdf")
	assert.Equal(t, ExtractionFailedText, text)
}

func TestExtractSlowSourceFallsThrough(t *testing.T) {
	pdf := minimalPDF("slow fallback")
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer live.Close()
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pdf)
	}))
	defer hist.Close()

	e := NewExtractor(config.DocStoreConfig{
		LiveBaseURL:    live.URL + "/",
		HistBaseURL:    hist.URL + "/",
		AttemptTimeout: "100ms",
	}, zerolog.Nop())

	text := e.Extract(context.Background(), "slow.pdf")
	assert.Contains(t, text, "slow fallback")
}
