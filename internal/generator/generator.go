package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/sanitize"
)

// Placeholder is substituted with the client's name in template mode.
const Placeholder = "{name}"

var (
	ErrMissingAPIKey = errors.New("generator: missing API key")
	ErrEmptyResponse = errors.New("generator: model returned an empty response")
	// ErrMissingPlaceholder means a template-mode text has no Placeholder.
	ErrMissingPlaceholder = errors.New("generator: template has no name placeholder")
)

// Model is the external generative text service.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Request struct {
	Salon         string
	Intent        string
	RecipientName string
	LastService   string
	// Template asks for a reusable text with Placeholder instead of a name.
	Template bool
}

// Result carries the prompt even when generation failed.
type Result struct {
	Text   string
	Prompt string
	Tone   Tone
}

type RetryPolicy struct {
	Attempts int           // total model calls, <1 means 1
	Wait     time.Duration // fixed pause between attempts
}

type Options struct {
	Language string // language the SMS is written in
	Tones    ToneSelector
	Retry    RetryPolicy
	Sleep    func(ctx context.Context, d time.Duration) error
}

type Generator struct {
	model    Model
	language string
	tones    ToneSelector
	retry    RetryPolicy
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(model Model, opts Options) *Generator {
	if opts.Language == "" {
		opts.Language = "Polish"
	}
	if opts.Tones == nil {
		opts.Tones = NewRandomTones(0)
	}
	if opts.Retry.Attempts < 1 {
		opts.Retry.Attempts = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	return &Generator{
		model:    model,
		language: opts.Language,
		tones:    opts.Tones,
		retry:    opts.Retry,
		sleep:    opts.Sleep,
	}
}

var promptTmpl = template.Must(template.New("prompt").Parse(`You are the receptionist of: {{.Salon}}.
Write one SMS to: {{.Name}}.
Campaign goal: {{.Intent}}. Last service: {{.LastService}}.
TONE REQUIREMENT: {{.Tone}}

RULES:
1. Address the client by name in the vocative form{{if .Template}}, but write the literal token {{.Placeholder}} instead of a real name and keep it exactly once{{end}}.
2. At most 160 characters.
3. Write in {{.Language}} without diacritics, but KEEP the emojis.
4. Sign with the salon name.
5. Return only the SMS text.
`))

type promptData struct {
	Salon       string
	Name        string
	Intent      string
	LastService string
	Tone        string
	Language    string
	Template    bool
	Placeholder string
}

// Prompt renders the instruction block for req with the given tone.
func (g *Generator) Prompt(req Request, tone Tone) string {
	name := req.RecipientName
	if req.Template {
		name = Placeholder
	}
	last := strings.TrimSpace(req.LastService)
	if last == "" {
		last = "unknown"
	}

	var sb strings.Builder
	_ = promptTmpl.Execute(&sb, promptData{
		Salon:       req.Salon,
		Name:        name,
		Intent:      req.Intent,
		LastService: last,
		Tone:        tone.Directive(),
		Language:    g.language,
		Template:    req.Template,
		Placeholder: Placeholder,
	})
	return sb.String()
}

// Generate performs one model call per attempt and returns sanitized text.
// Template-mode text is transliterated but not truncated.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	tone := g.tones.Select()
	res := Result{Prompt: g.Prompt(req, tone), Tone: tone}

	if g.model == nil {
		return res, ErrMissingAPIKey
	}

	var last error
	for i := 0; i < g.retry.Attempts; i++ {
		if i > 0 {
			if err := g.sleep(ctx, g.retry.Wait); err != nil {
				return res, err
			}
		}

		raw, err := g.model.Generate(ctx, res.Prompt)
		if err != nil {
			last = fmt.Errorf("generate: %w", err)
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			last = ErrEmptyResponse
			continue
		}

		if req.Template {
			// capped after the name is substituted
			res.Text = sanitize.Transliterate(raw)
		} else {
			res.Text = sanitize.Sanitize(raw)
		}
		return res, nil
	}

	return res, last
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
