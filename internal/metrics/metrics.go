package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CampaignMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_campaign_messages_total",
			Help: "Campaign messages by outcome and dispatch mode",
		},
		[]string{"status", "mode"}, // simulated-ok|sent-ok|failed , simulate|real
	)

	GenerationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_generation_total",
			Help: "Per-recipient text generation calls by result",
		},
		[]string{"result"}, // ok|failed
	)

	CampaignsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_campaigns_total",
			Help: "Campaign lifecycle counter by stage",
		},
		[]string{"stage"}, // queued|done|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		CampaignMessagesTotal,
		GenerationTotal,
		CampaignsTotal,
	)
}
