// Package delivery wraps SMS gateways behind a Sender that never fails loudly:
// every gateway error or panic becomes an unsuccessful Outcome.
package delivery

import (
	"context"
	"errors"
	"fmt"
)

var ErrMissingCredential = errors.New("delivery: missing SMS gateway credential")

const (
	DetailSimulated = "SIMULATED"
	DetailOK        = "OK"
)

// Gateway is the external SMS gateway.
type Gateway interface {
	Send(ctx context.Context, to, body string) error
}

type Outcome struct {
	OK     bool
	Detail string
}

type Sender interface {
	Send(ctx context.Context, phone, text string) Outcome
}

// Simulated performs no network call.
type Simulated struct{}

func (Simulated) Send(context.Context, string, string) Outcome {
	return Outcome{OK: true, Detail: DetailSimulated}
}

// GatewaySender calls the gateway exactly once per message.
type GatewaySender struct {
	gw Gateway
}

func NewGatewaySender(gw Gateway) *GatewaySender {
	return &GatewaySender{gw: gw}
}

func (s *GatewaySender) Send(ctx context.Context, phone, text string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{OK: false, Detail: fmt.Sprintf("gateway panic: %v", r)}
		}
	}()

	if err := s.gw.Send(ctx, phone, text); err != nil {
		return Outcome{OK: false, Detail: err.Error()}
	}
	return Outcome{OK: true, Detail: DetailOK}
}
