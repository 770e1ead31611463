/*
Package docstore retrieves announcement attachments and extracts their text.

Attachments are served from two stores: the current-period store and the
historical store. Each is tried in order with its own timeout, and any
failure degrades to a sentinel string rather than an error, as extraction
failure is never fatal to the pipeline.
*/
package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/kpraghav/orderwatch/internal/config"
	"github.com/kpraghav/orderwatch/internal/fallback"
)

// Sentinel payloads returned in place of extracted text.
const (
	NoAttachmentText     = "No PDF attachment available"
	ExtractionFailedText = "Failed to extract text from attachment"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Extractor downloads attachments and extracts page text with pdfcpu.
type Extractor struct {
	sources        []source
	attemptTimeout time.Duration
	httpClient     *http.Client
	tempDir        string
	logger         zerolog.Logger
}

type source struct {
	name    string
	baseURL string
}

// NewExtractor builds an extractor trying the live store first, then the
// historical store.
func NewExtractor(cfg config.DocStoreConfig, logger zerolog.Logger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "orderwatch-pdf")
	_ = os.MkdirAll(tempDir, 0o755)

	timeout := config.MustDuration(cfg.AttemptTimeout)

	return &Extractor{
		sources: []source{
			{name: "live", baseURL: cfg.LiveBaseURL},
			{name: "historical", baseURL: cfg.HistBaseURL},
		},
		attemptTimeout: timeout,
		httpClient:     &http.Client{Timeout: timeout},
		tempDir:        tempDir,
		logger:         logger,
	}
}

// Extract returns the attachment's concatenated page text, or a sentinel
// string when the attachment is missing or unusable. It never returns an
// error to the caller.
func (e *Extractor) Extract(ctx context.Context, attachmentRef string) string {
	if attachmentRef == "" {
		return NoAttachmentText
	}

	attempts := make([]fallback.Attempt[string], 0, len(e.sources))
	for _, s := range e.sources {
		s := s
		attempts = append(attempts, fallback.Attempt[string]{
			Name: s.name,
			Run: func(ctx context.Context) (string, error) {
				return e.fetchAndExtract(ctx, s.baseURL+attachmentRef)
			},
		})
	}

	text, sourceName, err := fallback.First(ctx, attempts)
	if err != nil {
		e.logger.Warn().Str("attachment", attachmentRef).Msg("attachment text extraction failed on all sources")
		return ExtractionFailedText
	}

	e.logger.Debug().
		Str("attachment", attachmentRef).
		Str("source", sourceName).
		Int("chars", len(text)).
		Msg("extracted attachment text")

	return text
}

func (e *Extractor) fetchAndExtract(ctx context.Context, pdfURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", "https://www.bseindia.com/")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status code %d from %s", resp.StatusCode, pdfURL)
	}

	pdfBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read attachment body: %w", err)
	}

	text, err := e.extractText(pdfBytes)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extracted empty text, file may be image-based or protected")
	}

	return strings.TrimSpace(text), nil
}

// extractText parses the bytes as a PDF and concatenates page text in page
// order.
func (e *Extractor) extractText(pdfBytes []byte) (string, error) {
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%d.pdf", time.Now().UnixNano()))
	if err := os.WriteFile(tempFile, pdfBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%d", time.Now().UnixNano()))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create page output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	// Page content lands in one file per page, named with a page_<n> suffix;
	// stitch the pages back together in page order.
	pageTexts := make(map[int]string)
	var leftover []string
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		if pageNum, ok := pageNumberFromName(file.Name()); ok {
			pageTexts[pageNum] = string(content)
		} else {
			leftover = append(leftover, string(content))
		}
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if text, ok := pageTexts[pageNum]; ok {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	}
	if len(pageTexts) == 0 {
		for _, text := range leftover {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	}

	return builder.String(), nil
}

func pageNumberFromName(name string) (int, bool) {
	i := strings.LastIndex(name, "page_")
	if i < 0 {
		return 0, false
	}
	numPart := strings.TrimSuffix(name[i+len("page_"):], filepath.Ext(name))
	pageNum, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, false
	}
	return pageNum, true
}
