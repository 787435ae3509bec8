package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/delivery"
	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingGateway struct {
	sent []string
	fail map[string]error
}

func (g *recordingGateway) Send(_ context.Context, to, body string) error {
	g.sent = append(g.sent, to+"|"+body)
	if err, ok := g.fail[to]; ok {
		return err
	}
	return nil
}

func factoryFor(gw delivery.Gateway) delivery.Factory {
	return delivery.FactoryFunc(func(context.Context) (delivery.Gateway, error) { return gw, nil })
}

// stubGenerator answers per recipient name; names in fail return an error.
type stubGenerator struct {
	calls []generator.Request
	fail  map[string]error
}

func (s *stubGenerator) Generate(_ context.Context, req generator.Request) (generator.Result, error) {
	s.calls = append(s.calls, req)
	if err, ok := s.fail[req.RecipientName]; ok {
		return generator.Result{Prompt: "p"}, err
	}
	if req.Template {
		return generator.Result{Text: "Czesc {name}! " + req.Intent, Prompt: "p"}, nil
	}
	return generator.Result{Text: "Cześć " + req.RecipientName + ", " + req.LastService, Prompt: "p"}, nil
}

type sleepRecorder struct{ calls []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func recipients(n int) []model.Recipient {
	out := make([]model.Recipient, n)
	for i := range out {
		out[i] = model.Recipient{
			ID:          fmt.Sprintf("r%d", i),
			Name:        fmt.Sprintf("Client %d", i),
			Phone:       fmt.Sprintf("4850000%04d", i),
			LastService: "manicure",
		}
	}
	return out
}

func TestDispatch_TemplateScenario(t *testing.T) {
	gw := &recordingGateway{}
	s := &sleepRecorder{}
	d := New(factoryFor(gw), Options{Sleep: s.sleep})

	req := Request{
		Salon:  "Studio",
		Intent: "-20% na manicure",
		Mode:   model.ModeSimulate,
		Recipients: []model.Recipient{
			{ID: "1", Name: "Anna Nowak", Phone: "48111111111", LastService: "manicure"},
			{ID: "2", Name: "Kasia", Phone: "48222222222", LastService: "brwi"},
		},
	}
	report, err := d.Dispatch(context.Background(), req, TemplateStrategy{Template: "Hej {name}! -20% na manicure. Studio"}, nil)
	require.NoError(t, err)

	require.Len(t, report.Messages, 2)
	assert.Equal(t, "Hej Anna Nowak! -20% na manicure. Studio", report.Messages[0].Text)
	assert.Equal(t, "Hej Kasia! -20% na manicure. Studio", report.Messages[1].Text)
	for _, m := range report.Messages {
		assert.Equal(t, model.StatusSimulated, m.Status)
		assert.Equal(t, delivery.DetailSimulated, m.Detail)
	}
	assert.Empty(t, gw.sent, "simulate must not reach the gateway")
	assert.Empty(t, s.calls, "no network call, no pacing")
}

func TestDispatch_SimulateNeverOpensGateway(t *testing.T) {
	opened := false
	f := delivery.FactoryFunc(func(context.Context) (delivery.Gateway, error) {
		opened = true
		return nil, errors.New("must not be called")
	})
	gen := &stubGenerator{fail: map[string]error{"Client 1": errors.New("quota")}}
	d := New(f, Options{Sleep: (&sleepRecorder{}).sleep})

	report, err := d.Dispatch(context.Background(), Request{Mode: model.ModeSimulate, Recipients: recipients(4)},
		PerRecipientStrategy{Generator: gen}, nil)
	require.NoError(t, err)
	assert.False(t, opened)

	for i, m := range report.Messages {
		if i == 1 {
			assert.Equal(t, model.StatusFailed, m.Status)
			assert.Contains(t, m.Detail, "generation")
			continue
		}
		assert.Equal(t, model.StatusSimulated, m.Status)
	}
}

func TestDispatch_GenerationFailureDoesNotAbort(t *testing.T) {
	gw := &recordingGateway{}
	gen := &stubGenerator{fail: map[string]error{"Anna": generator.ErrEmptyResponse}}
	d := New(factoryFor(gw), Options{Sleep: (&sleepRecorder{}).sleep})

	req := Request{
		Salon:  "Studio",
		Intent: "promo",
		Mode:   model.ModeReal,
		Recipients: []model.Recipient{
			{ID: "1", Name: "Anna", Phone: "48111111111", LastService: "manicure"},
			{ID: "2", Name: "Kasia", Phone: "48222222222", LastService: "brwi"},
		},
	}
	report, err := d.Dispatch(context.Background(), req, PerRecipientStrategy{Generator: gen}, nil)
	require.NoError(t, err)
	require.Len(t, report.Messages, 2)

	assert.Equal(t, model.StatusFailed, report.Messages[0].Status)
	assert.Contains(t, report.Messages[0].Detail, generator.ErrEmptyResponse.Error())
	assert.Empty(t, report.Messages[0].Text)

	assert.Equal(t, model.StatusSent, report.Messages[1].Status)
	assert.Equal(t, "Czesc Kasia, brwi", report.Messages[1].Text)
	assert.Equal(t, []string{"48222222222|Czesc Kasia, brwi"}, gw.sent)
	assert.Len(t, gen.calls, 2)
}

func TestDispatch_FallbackText(t *testing.T) {
	gen := &stubGenerator{fail: map[string]error{"Anna": errors.New("timeout")}}
	d := New(nil, Options{Sleep: (&sleepRecorder{}).sleep})

	report, err := d.Dispatch(context.Background(),
		Request{Salon: "Studio Róża", Mode: model.ModeSimulate, Recipients: []model.Recipient{{ID: "1", Name: "Anna"}}},
		PerRecipientStrategy{Generator: gen, Fallback: "{name}, tęsknimy! Zapraszamy do {salon}."}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSimulated, report.Messages[0].Status)
	assert.Equal(t, "Anna, tesknimy! Zapraszamy do Studio Roza.", report.Messages[0].Text)
}

func TestDispatch_DeliveryFailureRecordedVerbatim(t *testing.T) {
	rs := recipients(3)
	gw := &recordingGateway{fail: map[string]error{rs[1].Phone: errors.New("error=13: No correct phone numbers")}}
	d := New(factoryFor(gw), Options{Sleep: (&sleepRecorder{}).sleep})

	report, err := d.Dispatch(context.Background(), Request{Mode: model.ModeReal, Recipients: rs},
		TemplateStrategy{Template: "Hi {name}"}, nil)
	require.NoError(t, err)

	statuses := []model.MessageStatus{}
	for _, m := range report.Messages {
		statuses = append(statuses, m.Status)
	}
	assert.Equal(t, []model.MessageStatus{model.StatusSent, model.StatusFailed, model.StatusSent}, statuses)
	assert.Equal(t, "error=13: No correct phone numbers", report.Messages[1].Detail)
	assert.Equal(t, delivery.DetailOK, report.Messages[0].Detail)
	assert.Len(t, gw.sent, 3)
}

func TestDispatch_CompletenessAndOrder(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 25} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			rs := recipients(n)
			fail := map[string]error{}
			for i := 0; i < n; i += 3 {
				fail[rs[i].Name] = errors.New("boom")
			}
			d := New(factoryFor(&recordingGateway{}), Options{Sleep: (&sleepRecorder{}).sleep})

			report, err := d.Dispatch(context.Background(), Request{Mode: model.ModeReal, Recipients: rs},
				PerRecipientStrategy{Generator: &stubGenerator{fail: fail}}, nil)
			require.NoError(t, err)
			require.Len(t, report.Messages, n)
			for i, m := range report.Messages {
				assert.Equal(t, rs[i].ID, m.Recipient.ID)
			}
		})
	}
}

func TestDispatch_ProgressMonotonicAndClamped(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		var seen []Progress
		d := New(nil, Options{Sleep: (&sleepRecorder{}).sleep})
		_, err := d.Dispatch(context.Background(), Request{Mode: model.ModeSimulate, Recipients: recipients(n)},
			TemplateStrategy{Template: "x"}, func(p Progress) { seen = append(seen, p) })
		require.NoError(t, err)

		require.Len(t, seen, n)
		prev := 0.0
		for i, p := range seen {
			assert.GreaterOrEqual(t, p.Fraction, prev)
			assert.LessOrEqual(t, p.Fraction, 1.0)
			assert.Equal(t, i+1, p.Done)
			assert.Equal(t, n, p.Total)
			prev = p.Fraction
		}
		assert.Equal(t, 1.0, seen[n-1].Fraction)
	}
	assert.Equal(t, 1.0, fraction(5, 4))
}

func TestDispatch_PacingWhenNetworkUsed(t *testing.T) {
	s := &sleepRecorder{}
	d := New(factoryFor(&recordingGateway{}), Options{Pace: 2500 * time.Millisecond, Sleep: s.sleep})

	_, err := d.Dispatch(context.Background(), Request{Mode: model.ModeReal, Recipients: recipients(4)},
		TemplateStrategy{Template: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2500 * time.Millisecond, 2500 * time.Millisecond, 2500 * time.Millisecond}, s.calls)

	s.calls = nil
	_, err = d.Dispatch(context.Background(), Request{Mode: model.ModeSimulate, Recipients: recipients(3)},
		PerRecipientStrategy{Generator: &stubGenerator{}}, nil)
	require.NoError(t, err)
	assert.Len(t, s.calls, 2, "per-recipient generation is paced even in simulate mode")
}

func TestDispatch_ConfigurationErrorFailsFast(t *testing.T) {
	gen := &stubGenerator{}
	f := delivery.FactoryFunc(func(context.Context) (delivery.Gateway, error) {
		return nil, delivery.ErrMissingCredential
	})
	d := New(f, Options{Sleep: (&sleepRecorder{}).sleep})

	report, err := d.Dispatch(context.Background(), Request{Mode: model.ModeReal, Recipients: recipients(3)},
		PerRecipientStrategy{Generator: gen}, nil)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, delivery.ErrMissingCredential)
	assert.Empty(t, report.Messages)
	assert.Empty(t, gen.calls)

	_, err = New(nil, Options{}).Dispatch(context.Background(), Request{Mode: model.ModeReal}, TemplateStrategy{}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(nil, Options{}).Dispatch(context.Background(), Request{Mode: "bogus"}, TemplateStrategy{}, nil)
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestDispatch_CancellationRecordsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &recordingGateway{}
	d := New(factoryFor(gw), Options{Sleep: (&sleepRecorder{}).sleep})

	report, err := d.Dispatch(ctx, Request{Mode: model.ModeReal, Recipients: recipients(5)},
		TemplateStrategy{Template: "x"}, func(p Progress) {
			if p.Done == 2 {
				cancel()
			}
		})
	require.NoError(t, err)
	require.Len(t, report.Messages, 5)
	assert.Len(t, gw.sent, 2)
	for _, m := range report.Messages[2:] {
		assert.Equal(t, model.StatusFailed, m.Status)
		assert.Equal(t, DetailCancelled, m.Detail)
	}
}

func TestDispatch_SanitizesAndCaps(t *testing.T) {
	long := strings.Repeat("ż", 300)
	d := New(nil, Options{Sleep: (&sleepRecorder{}).sleep})

	report, err := d.Dispatch(context.Background(), Request{Mode: model.ModeSimulate, Recipients: recipients(1)},
		TemplateStrategy{Template: long}, nil)
	require.NoError(t, err)

	text := report.Messages[0].Text
	assert.Equal(t, strings.Repeat("z", 157)+"...", text)
}

func TestNewTemplateFromGenerator(t *testing.T) {
	gen := &stubGenerator{}
	strat, res, err := NewTemplateFromGenerator(context.Background(), gen, "Studio", "-20%")
	require.NoError(t, err)
	assert.Equal(t, "Czesc {name}! -20%", strat.Template)
	assert.Equal(t, "p", res.Prompt)
	require.Len(t, gen.calls, 1)
	assert.True(t, gen.calls[0].Template)

	text, err := strat.Render(context.Background(), Request{}, model.Recipient{Name: "Ola"})
	require.NoError(t, err)
	assert.Equal(t, "Czesc Ola! -20%", text)
}

type modelFunc func(ctx context.Context, prompt string) (string, error)

func (f modelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestNewTemplateFromGenerator_RejectsTextWithoutPlaceholder(t *testing.T) {
	gen := generator.New(modelFunc(func(context.Context, string) (string, error) {
		return "Hej Aniu! -20% na manicure. Studio", nil
	}), generator.Options{Tones: generator.FixedTone(generator.ToneConcise)})

	_, res, err := NewTemplateFromGenerator(context.Background(), gen, "Studio", "-20%")
	require.ErrorIs(t, err, generator.ErrMissingPlaceholder)
	assert.NotEmpty(t, res.Prompt)
}

func TestNewTemplateFromGenerator_PlaceholderNearEndSurvivesCap(t *testing.T) {
	// 163 runes with the placeholder across the 157 rune cut
	long := strings.Repeat("a", 155) + " {name}!"
	gen := generator.New(modelFunc(func(context.Context, string) (string, error) {
		return long, nil
	}), generator.Options{Tones: generator.FixedTone(generator.ToneConcise)})

	strat, _, err := NewTemplateFromGenerator(context.Background(), gen, "Studio", "-20%")
	require.NoError(t, err)
	assert.Equal(t, long, strat.Template)

	d := New(nil, Options{Sleep: (&sleepRecorder{}).sleep})
	report, err := d.Dispatch(context.Background(), Request{
		Mode: model.ModeSimulate,
		Recipients: []model.Recipient{
			{ID: "1", Name: "Ola", Phone: "48500000001"},
			{ID: "2", Name: "Ela", Phone: "48500000002"},
		},
	}, strat, nil)
	require.NoError(t, err)
	require.Len(t, report.Messages, 2)

	assert.Equal(t, strings.Repeat("a", 155)+" Ola!", report.Messages[0].Text)
	assert.Equal(t, strings.Repeat("a", 155)+" Ela!", report.Messages[1].Text)
	for _, m := range report.Messages {
		assert.Equal(t, model.StatusSimulated, m.Status)
	}
}
