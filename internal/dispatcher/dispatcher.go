package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/delivery"
	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/metrics"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/sanitize"
	"go.uber.org/zap"
)

var (
	ErrConfiguration = errors.New("dispatch configuration error")
	ErrInvalidMode   = errors.New("invalid dispatch mode")
)

const DetailCancelled = "cancelled"

// Request is one campaign pass. It is not persisted.
type Request struct {
	Salon      string
	Intent     string
	Recipients []model.Recipient
	Mode       model.Mode
}

// Progress is emitted after every recipient.
type Progress struct {
	Done     int
	Total    int
	Fraction float64 // never above 1
	Last     model.Message
}

type ProgressFunc func(Progress)

// Dispatcher drives the sequential generate → sanitize → send loop.
// It keeps no state between passes.
type Dispatcher struct {
	gateways delivery.Factory
	pace     time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *zap.Logger
}

type Options struct {
	// Pace is the pause after each recipient whose iteration touched the network.
	Pace  time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
	Log   *zap.Logger
}

func New(gateways delivery.Factory, opts Options) *Dispatcher {
	if opts.Pace <= 0 {
		opts.Pace = 1500 * time.Millisecond
	}
	if opts.Sleep == nil {
		opts.Sleep = generator.SleepContext
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Dispatcher{gateways: gateways, pace: opts.Pace, sleep: opts.Sleep, log: opts.Log}
}

func (d *Dispatcher) sender(ctx context.Context, mode model.Mode) (delivery.Sender, error) {
	switch mode {
	case model.ModeSimulate:
		return delivery.Simulated{}, nil
	case model.ModeReal:
		if d.gateways == nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, delivery.ErrMissingCredential)
		}
		gw, err := d.gateways.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return delivery.NewGatewaySender(gw), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// Dispatch returns exactly one message per recipient, in input order. Only a
// configuration problem detected before the loop is returned as an error;
// per-recipient failures are recorded in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, strategy Strategy, progress ProgressFunc) (model.Report, error) {
	sender, err := d.sender(ctx, req.Mode)
	if err != nil {
		return model.Report{}, err
	}

	total := len(req.Recipients)
	report := model.Report{Messages: make([]model.Message, 0, total)}
	paced := req.Mode == model.ModeReal || strategy.Remote()

	d.log.Info("dispatch started",
		zap.String("mode", req.Mode.String()),
		zap.String("strategy", strategy.Kind().String()),
		zap.Int("recipients", total))

	for i, r := range req.Recipients {
		var msg model.Message
		if ctx.Err() != nil {
			msg = model.Message{Recipient: r, Status: model.StatusFailed, Detail: DetailCancelled}
		} else {
			msg = d.one(ctx, req, strategy, sender, r)
		}
		report.Messages = append(report.Messages, msg)
		metrics.CampaignMessagesTotal.WithLabelValues(msg.Status.String(), req.Mode.String()).Inc()

		if msg.Status == model.StatusFailed {
			d.log.Warn("recipient failed", zap.String("recipient", r.ID), zap.String("detail", msg.Detail))
		} else {
			d.log.Debug("recipient done", zap.String("recipient", r.ID), zap.String("status", msg.Status.String()))
		}

		if progress != nil {
			progress(Progress{Done: i + 1, Total: total, Fraction: fraction(i+1, total), Last: msg})
		}

		if paced && i < total-1 && ctx.Err() == nil {
			// interrupted sleep just means the rest is recorded as cancelled
			_ = d.sleep(ctx, d.pace)
		}
	}

	ok, failed := report.Counts()
	d.log.Info("dispatch finished", zap.Int("ok", ok), zap.Int("failed", failed))

	return report, nil
}

func (d *Dispatcher) one(ctx context.Context, req Request, strategy Strategy, sender delivery.Sender, r model.Recipient) model.Message {
	text, err := strategy.Render(ctx, req, r)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		return model.Message{Recipient: r, Status: model.StatusFailed, Detail: "generation: " + err.Error()}
	}
	if strategy.Remote() {
		metrics.GenerationTotal.WithLabelValues("ok").Inc()
	}
	text = sanitize.Sanitize(text)

	out := sender.Send(ctx, r.Phone, text)
	msg := model.Message{Recipient: r, Text: text, Detail: out.Detail}
	switch {
	case !out.OK:
		msg.Status = model.StatusFailed
	case req.Mode == model.ModeSimulate:
		msg.Status = model.StatusSimulated
	default:
		msg.Status = model.StatusSent
	}
	return msg
}

func fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(done) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}
