package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/kafka"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"go.uber.org/zap"
)

// JobSource is the part of the Kafka consumer the worker uses.
type JobSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// JobRunner executes one campaign.
type JobRunner interface {
	Run(ctx context.Context, env model.Envelope) error
}

// CampaignKafka:
// - fetches campaign envelopes from Kafka,
// - runs them strictly one at a time (a campaign is a paced, sequential pass),
// - commits each offset only after its campaign finished.
type CampaignKafka struct {
	Jobs   JobSource
	Runner JobRunner
	Log    *zap.Logger

	// FetchBackoff is the pause after a failed fetch.
	FetchBackoff time.Duration
}

func NewCampaignKafka(jobs JobSource, runner JobRunner, log *zap.Logger) *CampaignKafka {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignKafka{
		Jobs:         jobs,
		Runner:       runner,
		Log:          log,
		FetchBackoff: 200 * time.Millisecond,
	}
}

// Run blocks until ctx is cancelled.
func (w *CampaignKafka) Run(ctx context.Context) error {
	for {
		m, err := w.Jobs.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.FetchBackoff):
			}
			continue
		}

		w.processOne(ctx, m)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (w *CampaignKafka) processOne(ctx context.Context, m kafka.Message) {
	// Parse envelope: { id, tenant_id }
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" {
		w.commit(ctx, m) // poison → commit, skip
		if err != nil {
			w.Log.Error("bad envelope json", zap.Error(err), zap.Int64("offset", m.Offset))
		} else {
			w.Log.Error("envelope missing id", zap.Int64("offset", m.Offset))
		}
		return
	}

	start := time.Now()
	if err := w.Runner.Run(ctx, env); err != nil {
		w.Log.Error("campaign run", zap.String("campaign", env.ID), zap.Error(err))
	} else {
		w.Log.Info("campaign processed", zap.String("campaign", env.ID), zap.Duration("took", time.Since(start)))
	}

	// A campaign cut short by shutdown is left uncommitted; the runner
	// skips it on redelivery unless it is still queued.
	if ctx.Err() != nil {
		return
	}
	w.commit(ctx, m)
}

func (w *CampaignKafka) commit(ctx context.Context, m kafka.Message) {
	if err := w.Jobs.Commit(ctx, m); err != nil {
		w.Log.Error("kafka commit", zap.Error(err), zap.Int64("offset", m.Offset))
	}
}
