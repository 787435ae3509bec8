package dispatcher

import (
	"context"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/model"
)

// Strategy produces the message text for one recipient.
type Strategy interface {
	Render(ctx context.Context, req Request, r model.Recipient) (string, error)
	// Remote reports whether Render calls an external service.
	Remote() bool
	Kind() model.StrategyKind
}

// TemplateStrategy substitutes the name placeholder in a precomputed template.
type TemplateStrategy struct {
	Template string
}

func (s TemplateStrategy) Render(_ context.Context, _ Request, r model.Recipient) (string, error) {
	return strings.ReplaceAll(s.Template, generator.Placeholder, r.Name), nil
}

func (TemplateStrategy) Remote() bool             { return false }
func (TemplateStrategy) Kind() model.StrategyKind { return model.StrategyTemplate }

// TextGenerator is the subset of generator.Generator the strategies use.
type TextGenerator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Result, error)
}

// NewTemplateFromGenerator spends one generation call on a template that
// serves every recipient. A text without generator.Placeholder is rejected
// with generator.ErrMissingPlaceholder.
func NewTemplateFromGenerator(ctx context.Context, gen TextGenerator, salon, intent string) (TemplateStrategy, generator.Result, error) {
	res, err := gen.Generate(ctx, generator.Request{
		Salon:    salon,
		Intent:   intent,
		Template: true,
	})
	if err != nil {
		return TemplateStrategy{}, res, err
	}
	if !strings.Contains(res.Text, generator.Placeholder) {
		return TemplateStrategy{}, res, generator.ErrMissingPlaceholder
	}
	return TemplateStrategy{Template: res.Text}, res, nil
}

// PerRecipientStrategy asks the generator for a fresh text per recipient.
// When Fallback is set, a failed generation is replaced by it ({name} and
// {salon} are substituted) instead of failing the recipient.
type PerRecipientStrategy struct {
	Generator TextGenerator
	Fallback  string
}

func (s PerRecipientStrategy) Render(ctx context.Context, req Request, r model.Recipient) (string, error) {
	res, err := s.Generator.Generate(ctx, generator.Request{
		Salon:         req.Salon,
		Intent:        req.Intent,
		RecipientName: r.Name,
		LastService:   r.LastService,
	})
	if err == nil {
		return res.Text, nil
	}
	if s.Fallback == "" {
		return "", err
	}
	return strings.NewReplacer(generator.Placeholder, r.Name, "{salon}", req.Salon).Replace(s.Fallback), nil
}

func (PerRecipientStrategy) Remote() bool             { return true }
func (PerRecipientStrategy) Kind() model.StrategyKind { return model.StrategyPerRecipient }
