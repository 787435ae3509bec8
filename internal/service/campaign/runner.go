package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/salon-campaigns/internal/dispatcher"
	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/metrics"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"go.uber.org/zap"
)

// ErrCancelled is the error recorded on a campaign whose run was cut short.
var ErrCancelled = errors.New("cancelled")

// RecipientSource is the read side of the roster the runner needs.
type RecipientSource interface {
	ListByTenant(ctx context.Context, tenantID string) ([]model.Recipient, error)
	GetByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Recipient, error)
}

type ReportWriter interface {
	InsertReport(ctx context.Context, c model.Campaign, report model.Report) error
}

// Runner executes one queued campaign end to end.
type Runner struct {
	campaigns  repository.CampaignsRepository
	recipients RecipientSource
	reports    ReportWriter
	progress   ProgressStore
	dispatcher *dispatcher.Dispatcher
	generator  dispatcher.TextGenerator
	fallback   string
	log        *zap.Logger
}

type RunnerOpts struct {
	Campaigns  repository.CampaignsRepository
	Recipients RecipientSource
	Reports    ReportWriter
	Progress   ProgressStore
	Dispatcher *dispatcher.Dispatcher
	// Generator is nil when no API key is configured.
	Generator dispatcher.TextGenerator
	// Fallback replaces failed per-recipient generations when set.
	Fallback string
	Log      *zap.Logger
}

func NewRunner(o RunnerOpts) *Runner {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return &Runner{
		campaigns:  o.Campaigns,
		recipients: o.Recipients,
		reports:    o.Reports,
		progress:   o.Progress,
		dispatcher: o.Dispatcher,
		generator:  o.Generator,
		fallback:   o.Fallback,
		log:        o.Log,
	}
}

// Run loads the campaign named by the envelope and dispatches it. Campaigns
// that already left the queued state are skipped, so a redelivered job never
// sends twice. A returned error means the campaign ended up failed (or could
// not be loaded); the job itself is finished either way.
func (r *Runner) Run(ctx context.Context, env model.Envelope) error {
	c, err := r.campaigns.Get(ctx, env.TenantID, env.ID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, env.ID)
	}

	log := r.log.With(zap.String("campaign", c.ID), zap.String("tenant", c.TenantID))
	if c.Status != model.CampaignQueued {
		log.Warn("campaign not queued, skipping", zap.String("status", c.Status.String()))
		return nil
	}

	// bookkeeping must land even when the worker is shutting down
	bg := context.WithoutCancel(ctx)

	recipients, err := r.loadRecipients(ctx, *c)
	if err != nil {
		return r.fail(bg, *c, fmt.Errorf("load recipients: %w", err))
	}

	if err := r.campaigns.MarkRunning(bg, c.ID, len(recipients)); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	metrics.CampaignsTotal.WithLabelValues("running").Inc()

	report, err := r.Execute(ctx, *c, recipients, func(p dispatcher.Progress) {
		if err := r.progress.Save(bg, c.ID, progressFrom(p)); err != nil {
			log.Warn("save progress", zap.Error(err))
		}
	})
	if err != nil {
		return r.fail(bg, *c, err)
	}

	// messages are already out; a lost report row must not flip the campaign to failed
	if err := r.reports.InsertReport(bg, *c, report); err != nil {
		log.Error("store delivery report", zap.Error(err))
	}

	ok, failed := report.Counts()
	if cerr := ctx.Err(); cerr != nil {
		// cut short: the rest of the roster was recorded as cancelled
		if err := r.campaigns.Finish(bg, c.ID, model.CampaignFailed, ok, failed, ErrCancelled.Error()); err != nil {
			return errors.Join(ErrCancelled, fmt.Errorf("finish campaign: %w", err))
		}
		metrics.CampaignsTotal.WithLabelValues("failed").Inc()
		log.Warn("campaign cancelled", zap.Int("ok", ok), zap.Int("failed", failed))
		return fmt.Errorf("%w: %w", ErrCancelled, cerr)
	}

	if err := r.campaigns.Finish(bg, c.ID, model.CampaignDone, ok, failed, ""); err != nil {
		return fmt.Errorf("finish campaign: %w", err)
	}
	metrics.CampaignsTotal.WithLabelValues("done").Inc()

	log.Info("campaign done", zap.Int("ok", ok), zap.Int("failed", failed))
	return nil
}

// Execute builds the text strategy for c and runs one dispatch pass. It does
// not touch campaign storage, so the CLI uses it directly.
func (r *Runner) Execute(ctx context.Context, c model.Campaign, recipients []model.Recipient, progress dispatcher.ProgressFunc) (model.Report, error) {
	strategy, err := r.Strategy(ctx, c)
	if err != nil {
		return model.Report{}, err
	}

	return r.dispatcher.Dispatch(ctx, dispatcher.Request{
		Salon:      c.Salon,
		Intent:     c.Intent,
		Recipients: recipients,
		Mode:       c.Mode,
	}, strategy, progress)
}

// Strategy picks the text source. A stored template is used as is; otherwise
// the template strategy costs exactly one generation call up front.
func (r *Runner) Strategy(ctx context.Context, c model.Campaign) (dispatcher.Strategy, error) {
	if c.Strategy == model.StrategyTemplate && c.Template != "" {
		return dispatcher.TemplateStrategy{Template: c.Template}, nil
	}
	if r.generator == nil {
		return nil, fmt.Errorf("%w: %w", dispatcher.ErrConfiguration, generator.ErrMissingAPIKey)
	}

	switch c.Strategy {
	case model.StrategyPerRecipient:
		return dispatcher.PerRecipientStrategy{Generator: r.generator, Fallback: r.fallback}, nil
	case model.StrategyTemplate:
		s, res, err := dispatcher.NewTemplateFromGenerator(ctx, r.generator, c.Salon, c.Intent)
		if err != nil {
			return nil, fmt.Errorf("generate template: %w", err)
		}
		r.log.Debug("template generated", zap.String("campaign", c.ID), zap.String("tone", string(res.Tone)))
		return s, nil
	default:
		return nil, fmt.Errorf("%w: strategy %q", ErrInvalidRequest, c.Strategy)
	}
}

func (r *Runner) loadRecipients(ctx context.Context, c model.Campaign) ([]model.Recipient, error) {
	if len(c.RecipientIDs) > 0 {
		return r.recipients.GetByIDs(ctx, c.TenantID, c.RecipientIDs)
	}
	return r.recipients.ListByTenant(ctx, c.TenantID)
}

func (r *Runner) fail(ctx context.Context, c model.Campaign, cause error) error {
	metrics.CampaignsTotal.WithLabelValues("failed").Inc()
	r.log.Error("campaign failed", zap.String("campaign", c.ID), zap.Error(cause))

	if err := r.campaigns.Finish(ctx, c.ID, model.CampaignFailed, 0, 0, cause.Error()); err != nil {
		return errors.Join(cause, fmt.Errorf("finish campaign: %w", err))
	}
	return cause
}
