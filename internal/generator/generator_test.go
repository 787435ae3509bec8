package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var reply string
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestGenerate_SanitizesAndReturnsPrompt(t *testing.T) {
	m := &fakeModel{replies: []string{"  Cześć Aniu! Zapraszamy 💅 Studio Róża  "}}
	g := New(m, Options{Tones: FixedTone(ToneZen)})

	res, err := g.Generate(context.Background(), Request{
		Salon:         "Studio Róża",
		Intent:        "-20% na manicure",
		RecipientName: "Anna",
		LastService:   "manicure",
	})
	require.NoError(t, err)

	assert.Equal(t, "Czesc Aniu! Zapraszamy 💅 Studio Roza", res.Text)
	assert.Equal(t, ToneZen, res.Tone)
	assert.Equal(t, res.Prompt, m.prompts[0])
	assert.Contains(t, res.Prompt, "Studio Róża")
	assert.Contains(t, res.Prompt, "Anna")
	assert.Contains(t, res.Prompt, "manicure")
	assert.Contains(t, res.Prompt, ToneZen.Directive())
	assert.NotContains(t, res.Prompt, Placeholder)
}

func TestGenerate_TemplateModeUsesPlaceholder(t *testing.T) {
	m := &fakeModel{replies: []string{"Hej {name}! -20% na manicure. Studio"}}
	g := New(m, Options{Tones: FixedTone(ToneConcise)})

	res, err := g.Generate(context.Background(), Request{
		Salon:         "Studio",
		Intent:        "-20%",
		RecipientName: "Anna",
		Template:      true,
	})
	require.NoError(t, err)

	assert.Contains(t, res.Prompt, "SMS to: "+Placeholder)
	assert.NotContains(t, res.Prompt, "Anna")
	assert.Contains(t, res.Text, Placeholder)
}

func TestGenerate_TemplateModeIsNotTruncated(t *testing.T) {
	long := "Cześć " + strings.Repeat("a", 160) + " {name}!"
	g := New(&fakeModel{replies: []string{long}}, Options{Tones: FixedTone(ToneConcise)})

	res, err := g.Generate(context.Background(), Request{Salon: "Studio", Template: true})
	require.NoError(t, err)
	assert.Equal(t, "Czesc "+strings.Repeat("a", 160)+" {name}!", res.Text)
}

func TestGenerate_EmptyResponseIsError(t *testing.T) {
	m := &fakeModel{replies: []string{"   \n"}}
	g := New(m, Options{Tones: FixedTone(ToneFriendly)})

	res, err := g.Generate(context.Background(), Request{Salon: "S", RecipientName: "Kasia"})
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.Empty(t, res.Text)
	assert.NotEmpty(t, res.Prompt)
}

func TestGenerate_ModelErrorSingleCallByDefault(t *testing.T) {
	boom := errors.New("quota exceeded")
	m := &fakeModel{errs: []error{boom, nil}, replies: []string{"", "ok"}}
	g := New(m, Options{Tones: FixedTone(ToneFriendly)})

	_, err := g.Generate(context.Background(), Request{Salon: "S", RecipientName: "Kasia"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, m.prompts, 1)
}

func TestGenerate_RetryPolicy(t *testing.T) {
	boom := errors.New("503")
	m := &fakeModel{errs: []error{boom, boom, nil}, replies: []string{"", "", "Hej Kasiu"}}

	var waits []time.Duration
	g := New(m, Options{
		Tones: FixedTone(ToneFriendly),
		Retry: RetryPolicy{Attempts: 3, Wait: 2 * time.Second},
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	})

	res, err := g.Generate(context.Background(), Request{Salon: "S", RecipientName: "Kasia"})
	require.NoError(t, err)
	assert.Equal(t, "Hej Kasiu", res.Text)
	assert.Len(t, m.prompts, 3)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, waits)
}

func TestGenerate_NilModel(t *testing.T) {
	g := New(nil, Options{Tones: FixedTone(ToneFriendly), Sleep: noSleep})
	res, err := g.Generate(context.Background(), Request{Salon: "S", RecipientName: "Kasia"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.NotEmpty(t, res.Prompt)
}

func TestRandomTones_CoverAllTones(t *testing.T) {
	s := NewRandomTones(42)
	seen := map[Tone]bool{}
	for i := 0; i < 500; i++ {
		tone := s.Select()
		require.True(t, tone.Valid())
		seen[tone] = true
	}
	assert.Len(t, seen, len(Tones))
}

func TestNewGenAIModel_RequiresKey(t *testing.T) {
	_, err := NewGenAIModel(context.Background(), GenAIOpts{APIKey: "  "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestPrompt_UnknownLastService(t *testing.T) {
	g := New(&fakeModel{}, Options{Tones: FixedTone(ToneElegant), Language: "English"})
	p := g.Prompt(Request{Salon: "S", RecipientName: "Kasia"}, ToneElegant)
	assert.True(t, strings.Contains(p, "Last service: unknown"))
	assert.Contains(t, p, "Write in English")
}
