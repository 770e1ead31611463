/*
Package feed provides the client for the BSE corporate announcement feed.

The feed is a paginated JSON API queried by category, subcategory and date
window; pagination terminates on an empty page or a not-found status.
*/
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kpraghav/orderwatch/internal/config"
	"github.com/kpraghav/orderwatch/internal/types"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 2 // requests per second

	// The feed rejects requests without browser-like headers.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"
	referer   = "https://www.bseindia.com/"
)

// Client fetches announcement pages from the feed API.
type Client struct {
	baseURL     string
	category    string
	subcategory string
	fromDate    string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger
}

// NewClient builds a feed client from configuration.
func NewClient(cfg config.FeedConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		category:    cfg.Category,
		subcategory: cfg.Subcategory,
		fromDate:    cfg.FromDate,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
		logger:      logger,
	}
}

type feedRow struct {
	ScripCode   json.Number `json:"SCRIP_CD"`
	CompanyName string      `json:"SLONGNAME"`
	Headline    string      `json:"NEWSSUB"`
	DateTime    string      `json:"DT_TM"`
	Attachment  string      `json:"ATTACHMENTNAME"`
	NewsID      string      `json:"NEWSID"`
}

type feedResponse struct {
	Table []feedRow `json:"Table"`
}

// FetchOrders drains every page of today's order-receipt announcements.
// A failure mid-pagination returns the rows collected so far along with the
// error; the caller decides whether a partial page set is usable.
func (c *Client) FetchOrders(ctx context.Context) ([]types.Announcement, error) {
	today := time.Now().Format("20060102")
	fromDate := c.fromDate
	if fromDate == "" {
		fromDate = today
	}

	var all []types.Announcement
	for page := 1; ; page++ {
		rows, err := c.fetchPage(ctx, page, fromDate, today)
		if err != nil {
			return all, fmt.Errorf("feed page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			all = append(all, types.Announcement{
				ScripCode:     row.ScripCode.String(),
				CompanyName:   row.CompanyName,
				Headline:      row.Headline,
				DateTime:      row.DateTime,
				AttachmentRef: row.Attachment,
				NewsID:        row.NewsID,
			})
		}
	}

	c.logger.Info().Int("count", len(all)).Str("date", today).Msg("fetched order announcements")
	return all, nil
}

// fetchPage returns nil rows (no error) on a 404, which the feed uses to
// signal the end of pagination.
func (c *Client) fetchPage(ctx context.Context, page int, fromDate, toDate string) ([]feedRow, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"pageno":      {fmt.Sprintf("%d", page)},
		"strCat":      {c.category},
		"strPrevDate": {fromDate},
		"strToDate":   {toDate},
		"strScrip":    {""},
		"strSearch":   {"P"},
		"strType":     {"C"},
		"subcategory": {c.subcategory},
	}

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Origin", "https://www.bseindia.com")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-OK status code %d", resp.StatusCode)
	}

	var decoded feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode feed JSON: %w", err)
	}

	return decoded.Table, nil
}
