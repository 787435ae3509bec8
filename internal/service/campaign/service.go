package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/metrics"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/util"
	"github.com/jmoiron/sqlx"
)

const JobsKafkaTopic = "campaign.jobs"

var (
	ErrInvalidRequest = errors.New("invalid campaign request")
	ErrNotFound       = errors.New("campaign not found")
)

// Request is what a salon owner submits to start a campaign.
// Empty RecipientIDs targets the whole roster.
type Request struct {
	Salon        string             `json:"salon"`
	Intent       string             `json:"intent"`
	Mode         model.Mode         `json:"mode"`
	Strategy     model.StrategyKind `json:"strategy"`
	Template     string             `json:"template,omitempty"`
	RecipientIDs []string           `json:"recipient_ids,omitempty"`
}

// Validate trims the free-text fields and checks the enums.
func (r *Request) Validate() error {
	r.Salon = strings.TrimSpace(r.Salon)
	r.Intent = strings.TrimSpace(r.Intent)
	r.Template = strings.TrimSpace(r.Template)

	if r.Salon == "" {
		return fmt.Errorf("%w: salon is required", ErrInvalidRequest)
	}
	if r.Intent == "" && r.Template == "" {
		return fmt.Errorf("%w: intent or template is required", ErrInvalidRequest)
	}

	mode, ok := model.ParseMode(r.Mode.String())
	if !ok {
		return fmt.Errorf("%w: mode %q", ErrInvalidRequest, r.Mode)
	}
	r.Mode = mode

	kind, ok := model.ParseStrategyKind(r.Strategy.String())
	if !ok {
		return fmt.Errorf("%w: strategy %q", ErrInvalidRequest, r.Strategy)
	}
	r.Strategy = kind
	if r.Template != "" && kind != model.StrategyTemplate {
		return fmt.Errorf("%w: template is only used by the template strategy", ErrInvalidRequest)
	}
	return nil
}

// Service persists campaigns and hands them to the worker through the outbox.
type Service struct {
	db        *sqlx.DB
	campaigns repository.CampaignsRepository
	outbox    repository.OutboxRepository
	progress  ProgressStore
	topic     string
}

func NewService(
	db *sqlx.DB,
	campaignsRepo repository.CampaignsRepository,
	outboxRepo repository.OutboxRepository,
	progress ProgressStore,
	topic string,
) *Service {
	if topic == "" {
		topic = JobsKafkaTopic
	}
	return &Service{
		db:        db,
		campaigns: campaignsRepo,
		outbox:    outboxRepo,
		progress:  progress,
		topic:     topic,
	}
}

// Enqueue writes the `campaigns` row and its outbox event in one transaction
// and returns the queued campaign.
func (s *Service) Enqueue(ctx context.Context, tenantID string, req Request) (model.Campaign, error) {
	if err := req.Validate(); err != nil {
		return model.Campaign{}, err
	}

	c := model.Campaign{
		ID:           util.NewID(),
		TenantID:     tenantID,
		Salon:        req.Salon,
		Intent:       req.Intent,
		Mode:         req.Mode,
		Strategy:     req.Strategy,
		Template:     req.Template,
		RecipientIDs: req.RecipientIDs,
		Status:       model.CampaignQueued,
	}

	payload, err := json.Marshal(model.Envelope{ID: c.ID, TenantID: tenantID})
	if err != nil {
		return model.Campaign{}, fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Campaign{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.campaigns.Create(ctx, tx, c); err != nil {
		return model.Campaign{}, fmt.Errorf("insert campaign: %w", err)
	}

	if err := s.outbox.Insert(ctx, tx, model.OutboxEvent{
		Aggregate:   "campaign",
		AggregateID: c.ID,
		Topic:       s.topic,
		Payload:     payload,
	}); err != nil {
		return model.Campaign{}, fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Campaign{}, err
	}

	metrics.CampaignsTotal.WithLabelValues("queued").Inc()
	return c, nil
}

// Status returns the stored campaign with its live progress, if any was recorded.
func (s *Service) Status(ctx context.Context, tenantID, id string) (model.Campaign, *Progress, error) {
	c, err := s.campaigns.Get(ctx, tenantID, id)
	if err != nil {
		return model.Campaign{}, nil, err
	}
	if c == nil {
		return model.Campaign{}, nil, ErrNotFound
	}

	p, ok, err := s.progress.Load(ctx, id)
	if err != nil {
		return *c, nil, fmt.Errorf("load progress: %w", err)
	}
	if !ok {
		return *c, nil, nil
	}
	return *c, &p, nil
}
