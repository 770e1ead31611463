/*
Package pipeline runs the polling loop that turns BSE order announcements
into alerts.

Each cycle fetches the day's announcements, and for every unseen one:
resolves the company's financials, extracts the attachment text, asks the
classifier for an impact verdict, alerts on BIG, and commits the result.
The commit order is fixed: audit row first, then the processed set, so a
crash between the two re-processes the announcement rather than losing it.
*/
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kpraghav/orderwatch/internal/config"
	"github.com/kpraghav/orderwatch/internal/notify"
	"github.com/kpraghav/orderwatch/internal/types"
)

// Feed lists the day's order announcements.
type Feed interface {
	FetchOrders(ctx context.Context) ([]types.Announcement, error)
}

// Enricher resolves market cap and revenue for an announcement's company.
type Enricher interface {
	Enrich(ctx context.Context, ann types.Announcement) types.FinancialSnapshot
}

// Extractor returns the attachment text, or a sentinel when there is none.
type Extractor interface {
	Extract(ctx context.Context, attachmentRef string) string
}

// Classifier returns an impact verdict for the extracted text.
type Classifier interface {
	Classify(ctx context.Context, text string, snapshot types.FinancialSnapshot) types.ImpactVerdict
}

// Dispatcher fans an alert out to the configured targets and reports whether
// at least one delivery succeeded.
type Dispatcher interface {
	Send(ctx context.Context, subject, message string) bool
}

// Store is the dedup store of processed announcement identifiers.
type Store interface {
	Contains(id string) bool
	Add(id string)
	Save() error
}

// Audit appends a durable record of each decision.
type Audit interface {
	Append(rec types.AuditRecord) error
}

// Deps collects the orchestrator's collaborators.
type Deps struct {
	Feed       Feed
	Enricher   Enricher
	Extractor  Extractor
	Classifier Classifier
	Dispatcher Dispatcher
	Store      Store
	Audit      Audit
}

// Orchestrator drives the poll/process/commit loop on a single goroutine.
type Orchestrator struct {
	deps         Deps
	gate         config.GateConfig
	pollInterval time.Duration
	pacer        *rate.Limiter
	logger       zerolog.Logger
	now          func() time.Time
}

// New builds an Orchestrator from validated configuration. itemDelay is the
// minimum spacing between announcements within a cycle.
func New(deps Deps, gate config.GateConfig, pollInterval, itemDelay time.Duration, logger zerolog.Logger) *Orchestrator {
	pacer := rate.NewLimiter(rate.Inf, 1)
	if itemDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(itemDelay), 1)
	}
	return &Orchestrator{
		deps:         deps,
		gate:         gate,
		pollInterval: pollInterval,
		pacer:        pacer,
		logger:       logger,
		now:          time.Now,
	}
}

// Run polls until the context is cancelled. Persistence failures abort the
// loop; everything else is logged and the loop keeps going.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := o.RunOnce(ctx); err != nil {
			return err
		}

		o.logger.Debug().Dur("interval", o.pollInterval).Msg("cycle complete, sleeping")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.pollInterval):
		}
	}
}

// RunOnce performs a single poll cycle. A feed error does not stop the
// cycle: whatever announcements were fetched before the failure are still
// processed.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	anns, err := o.deps.Feed.FetchOrders(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Int("fetched", len(anns)).Msg("feed fetch incomplete")
	}
	o.logger.Info().Int("count", len(anns)).Msg("fetched announcements")

	for _, ann := range anns {
		if err := o.pacer.Wait(ctx); err != nil {
			return err
		}
		if err := o.processOne(ctx, ann); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) processOne(ctx context.Context, ann types.Announcement) error {
	id := ann.ID()
	if id == "" {
		o.logger.Warn().Str("company", ann.CompanyName).Msg("announcement missing scrip code or news id, skipping")
		return nil
	}
	if o.deps.Store.Contains(id) {
		o.logger.Debug().Str("id", id).Msg("already processed")
		return nil
	}

	log := o.logger.With().Str("id", id).Str("company", ann.CompanyName).Logger()
	log.Info().Str("headline", ann.Headline).Msg("processing announcement")

	snapshot := o.deps.Enricher.Enrich(ctx, ann)
	if !snapshot.HasMarketCap() {
		log.Info().Msg("no market data, recording NO_DATA")
		return o.commit(id, types.AuditRecord{
			Timestamp: o.now(),
			Company:   ann.CompanyName,
			ScripCode: ann.ScripCode,
			Impact:    types.OutcomeNoData,
		})
	}

	if note, pass := o.checkGate(snapshot); !pass {
		log.Info().Str("reason", note).Msg("outside financial gate, recording FILTERED")
		return o.commit(id, types.AuditRecord{
			Timestamp: o.now(),
			Company:   ann.CompanyName,
			ScripCode: ann.ScripCode,
			Impact:    types.OutcomeFiltered,
			Note:      note,
		})
	}

	text := o.deps.Extractor.Extract(ctx, ann.AttachmentRef)
	verdict := o.deps.Classifier.Classify(ctx, text, snapshot)
	log.Info().Str("impact", string(verdict.Label)).Int("tokens", verdict.TokensUsed).Msg("classified")

	alertSent := false
	if verdict.Label == types.ImpactBig {
		subject := fmt.Sprintf("Order Alert: %s", ann.CompanyName)
		message := notify.FormatOrderAlert(ann.CompanyName, ann.DateTime, verdict.Note,
			int(snapshot.Revenue), int(snapshot.MarketCap))
		alertSent = o.deps.Dispatcher.Send(ctx, subject, message)
	}

	return o.commit(id, types.AuditRecord{
		Timestamp:  o.now(),
		Company:    ann.CompanyName,
		ScripCode:  ann.ScripCode,
		Impact:     string(verdict.Label),
		AlertSent:  alertSent,
		TokensUsed: verdict.TokensUsed,
		Note:       verdict.Note,
	})
}

// checkGate applies the market-cap window and revenue floor. The returned
// note explains the first failing threshold.
func (o *Orchestrator) checkGate(s types.FinancialSnapshot) (string, bool) {
	switch {
	case s.MarketCap < o.gate.MinMarketCap:
		return fmt.Sprintf("market cap %.0f Cr below %.0f Cr", s.MarketCap, o.gate.MinMarketCap), false
	case s.MarketCap > o.gate.MaxMarketCap:
		return fmt.Sprintf("market cap %.0f Cr above %.0f Cr", s.MarketCap, o.gate.MaxMarketCap), false
	case s.Revenue < o.gate.MinRevenue:
		return fmt.Sprintf("revenue %.0f Cr below %.0f Cr", s.Revenue, o.gate.MinRevenue), false
	}
	return "", true
}

// commit makes the decision durable. The audit row goes first so a crash
// between the two writes repeats the announcement instead of dropping it.
func (o *Orchestrator) commit(id string, rec types.AuditRecord) error {
	if err := o.deps.Audit.Append(rec); err != nil {
		return fmt.Errorf("failed to append audit record for %s: %w", id, err)
	}
	o.deps.Store.Add(id)
	if err := o.deps.Store.Save(); err != nil {
		return fmt.Errorf("failed to save processed set after %s: %w", id, err)
	}
	return nil
}
