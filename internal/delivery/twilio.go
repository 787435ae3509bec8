package delivery

import (
	"context"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	From       string
}

// TwilioGateway sends through the Twilio Messages API.
type TwilioGateway struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioGateway(o TwilioOpts) (*TwilioGateway, error) {
	if o.AccountSID == "" || o.AuthToken == "" || o.From == "" {
		return nil, ErrMissingCredential
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: o.AccountSID,
		Password: o.AuthToken,
	})
	return &TwilioGateway{client: client, from: o.From}, nil
}

// Send ignores ctx; the Twilio client has no context-aware calls.
func (g *TwilioGateway) Send(_ context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(e164(to))
	params.SetFrom(g.from)
	params.SetBody(body)
	_, err := g.client.Api.CreateMessage(params)
	return err
}

// roster phones are stored as bare digits
func e164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
