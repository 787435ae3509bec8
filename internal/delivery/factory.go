package delivery

import (
	"context"
	"fmt"
	"strings"
)

// Factory opens a gateway session. The dispatcher calls it once per real pass.
type Factory interface {
	Open(ctx context.Context) (Gateway, error)
}

type FactoryFunc func(ctx context.Context) (Gateway, error)

func (f FactoryFunc) Open(ctx context.Context) (Gateway, error) { return f(ctx) }

const (
	ProviderTwilio = "twilio"
	ProviderHTTP   = "http"
)

// NewFactory selects the configured provider. Credentials are checked on Open
// so that simulate-only deployments need none.
func NewFactory(provider string, tw TwilioOpts, providers []HTTPOpts) Factory {
	return FactoryFunc(func(context.Context) (Gateway, error) {
		switch strings.ToLower(strings.TrimSpace(provider)) {
		case ProviderTwilio, "":
			return NewTwilioGateway(tw)
		case ProviderHTTP:
			var gws []*HTTPGateway
			for _, p := range providers {
				if strings.TrimSpace(p.BaseURL) == "" || strings.TrimSpace(p.Token) == "" {
					continue
				}
				gws = append(gws, NewHTTPGateway(p))
			}
			if len(gws) == 0 {
				return nil, ErrMissingCredential
			}
			return NewPool(gws...), nil
		default:
			return nil, fmt.Errorf("unknown sms provider %q", provider)
		}
	})
}
