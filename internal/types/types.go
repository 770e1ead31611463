package types

import (
	"fmt"
	"time"
)

// Announcement is one row from the BSE corporate announcement feed.
// It is immutable once fetched; the pipeline never mutates it.
type Announcement struct {
	ScripCode     string
	CompanyName   string
	Headline      string
	DateTime      string
	AttachmentRef string
	NewsID        string
}

// ID returns the composite dedup identifier, or an empty string when the
// announcement is missing the fields needed to form a stable identity.
func (a Announcement) ID() string {
	if a.ScripCode == "" || a.NewsID == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s", a.ScripCode, a.NewsID)
}

// FinancialSnapshot holds market capitalization and trailing revenue in
// crores. Zero values mean "not resolvable".
type FinancialSnapshot struct {
	MarketCap float64
	Revenue   float64
}

// HasMarketCap reports whether a market cap was resolvable at all.
func (s FinancialSnapshot) HasMarketCap() bool {
	return s.MarketCap > 0
}

// ImpactLabel is the classifier's categorical verdict on an order's
// materiality.
type ImpactLabel string

const (
	ImpactBig     ImpactLabel = "BIG"
	ImpactMedium  ImpactLabel = "MEDIUM"
	ImpactSmall   ImpactLabel = "SMALL"
	ImpactUnknown ImpactLabel = "UNKNOWN"
)

// ImpactVerdict is the parsed classifier output. UNKNOWN represents a
// classifier failure or unparseable output, distinct from a genuine SMALL.
type ImpactVerdict struct {
	Label      ImpactLabel
	Note       string
	TokensUsed int
}

// Outcome markers for announcements that never reached classification.
// They share the Impact column of the audit log with the classifier labels.
const (
	OutcomeNoData   = "NO_DATA"
	OutcomeFiltered = "FILTERED"
)

// AuditRecord is one append-only row of the operational history.
type AuditRecord struct {
	Timestamp  time.Time
	Company    string
	ScripCode  string
	Impact     string
	AlertSent  bool
	TokensUsed int
	Note       string
}
