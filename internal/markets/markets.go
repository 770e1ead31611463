/*
Package markets enriches an announcement with company financials.

Resolution is best-effort: a free-text company name is fuzz-matched to an NSE
symbol, then market capitalization and trailing revenue are fetched from the
quote-summary service and rescaled to crores. When symbol resolution fails,
the raw scrip code is tried under the .NS and .BO exchange suffixes. Every
collaborator failure degrades to "no data"; nothing propagates to the caller.
*/
package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kpraghav/orderwatch/internal/config"
	"github.com/kpraghav/orderwatch/internal/fallback"
	"github.com/kpraghav/orderwatch/internal/types"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// crore is the unit of account: 1e7 raw currency units.
const crore = 1e7

// Common legal-entity suffixes stripped before symbol search.
var legalSuffixes = []string{" Ltd", " Limited", " Pvt Ltd", " Private Limited", "-$"}

// Enricher resolves symbols and fetches financial snapshots.
type Enricher struct {
	symbolSearchURL string
	quoteSummaryURL string
	httpClient      *http.Client
	logger          zerolog.Logger
}

// NewEnricher builds an enricher from configuration.
func NewEnricher(cfg config.MarketsConfig, logger zerolog.Logger) *Enricher {
	return &Enricher{
		symbolSearchURL: cfg.SymbolSearchURL,
		quoteSummaryURL: strings.TrimSuffix(cfg.QuoteSummaryURL, "/"),
		httpClient:      &http.Client{Timeout: config.MustDuration(cfg.Timeout)},
		logger:          logger,
	}
}

// Enrich returns the best financial snapshot it can assemble for the
// announcement. A zero-valued snapshot means every avenue was exhausted.
func (e *Enricher) Enrich(ctx context.Context, ann types.Announcement) types.FinancialSnapshot {
	attempts := []fallback.Attempt[types.FinancialSnapshot]{
		{Name: "resolved-symbol", Run: func(ctx context.Context) (types.FinancialSnapshot, error) {
			symbol, err := e.resolveSymbol(ctx, ann.CompanyName)
			if err != nil {
				return types.FinancialSnapshot{}, err
			}
			return e.financials(ctx, symbol+".NS")
		}},
		{Name: "scrip-nse", Run: func(ctx context.Context) (types.FinancialSnapshot, error) {
			return e.financials(ctx, ann.ScripCode+".NS")
		}},
		{Name: "scrip-bse", Run: func(ctx context.Context) (types.FinancialSnapshot, error) {
			return e.financials(ctx, ann.ScripCode+".BO")
		}},
	}

	snapshot, via, err := fallback.First(ctx, attempts)
	if err != nil {
		e.logger.Info().Str("company", ann.CompanyName).Msg("no financial data resolvable")
		return types.FinancialSnapshot{}
	}

	e.logger.Debug().
		Str("company", ann.CompanyName).
		Str("via", via).
		Float64("market_cap_cr", snapshot.MarketCap).
		Float64("revenue_cr", snapshot.Revenue).
		Msg("resolved financials")

	return snapshot
}

type symbolSearchResponse struct {
	Symbols []struct {
		Symbol        string `json:"symbol"`
		ResultSubType string `json:"result_sub_type"`
	} `json:"symbols"`
}

// resolveSymbol strips legal-entity suffixes and queries the symbol-search
// service, preferring an exact "equity" result type.
func (e *Enricher) resolveSymbol(ctx context.Context, companyName string) (string, error) {
	cleanName := companyName
	for _, suffix := range legalSuffixes {
		cleanName = strings.ReplaceAll(cleanName, suffix, "")
	}
	cleanName = strings.TrimSpace(cleanName)
	if cleanName == "" {
		return "", fmt.Errorf("empty company name after cleaning")
	}

	reqURL := fmt.Sprintf("%s?q=%s", e.symbolSearchURL, url.QueryEscape(cleanName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://www.nseindia.com/")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("symbol search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("symbol search returned status %d", resp.StatusCode)
	}

	var decoded symbolSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode symbol search response: %w", err)
	}

	for _, s := range decoded.Symbols {
		if s.ResultSubType == "equity" {
			return s.Symbol, nil
		}
	}
	return "", fmt.Errorf("no equity match for %q", cleanName)
}

// Raw values arrive nested under a "raw" key.
type rawValue struct {
	Raw float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			FinancialData struct {
				TotalRevenue rawValue `json:"totalRevenue"`
			} `json:"financialData"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// financials fetches market cap and total revenue for one suffixed symbol,
// rescaled to crores. A response without a market cap is an error so the
// fallback chain can move on.
func (e *Enricher) financials(ctx context.Context, symbol string) (types.FinancialSnapshot, error) {
	reqURL := fmt.Sprintf("%s/%s?modules=price%%2CfinancialData", e.quoteSummaryURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.FinancialSnapshot{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return types.FinancialSnapshot{}, fmt.Errorf("financials lookup failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.FinancialSnapshot{}, fmt.Errorf("financials lookup for %s returned status %d", symbol, resp.StatusCode)
	}

	var decoded quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return types.FinancialSnapshot{}, fmt.Errorf("failed to decode financials for %s: %w", symbol, err)
	}

	if len(decoded.QuoteSummary.Result) == 0 {
		return types.FinancialSnapshot{}, fmt.Errorf("empty financials result for %s", symbol)
	}

	result := decoded.QuoteSummary.Result[0]
	snapshot := types.FinancialSnapshot{
		MarketCap: result.Price.MarketCap.Raw / crore,
		Revenue:   result.FinancialData.TotalRevenue.Raw / crore,
	}
	if !snapshot.HasMarketCap() {
		return types.FinancialSnapshot{}, fmt.Errorf("no market cap for %s", symbol)
	}

	return snapshot, nil
}
