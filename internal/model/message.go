package model

type MessageStatus string

const (
	StatusSimulated MessageStatus = "simulated-ok"
	StatusSent      MessageStatus = "sent-ok"
	StatusFailed    MessageStatus = "failed"
)

func (s MessageStatus) String() string {
	return string(s)
}

func (s MessageStatus) Valid() bool {
	return s == StatusSimulated || s == StatusSent || s == StatusFailed
}

func (s MessageStatus) OK() bool {
	return s == StatusSimulated || s == StatusSent
}

// Message is the outcome of one recipient within a dispatch pass.
type Message struct {
	Recipient Recipient     `json:"recipient"`
	Text      string        `json:"text"`
	Status    MessageStatus `json:"status"`
	Detail    string        `json:"detail,omitempty"` // adapter detail, verbatim
}

// Report lists messages in the order recipients were iterated.
type Report struct {
	Messages []Message `json:"messages"`
}

func (r Report) Len() int { return len(r.Messages) }

// Counts returns ok / failed totals.
func (r Report) Counts() (ok, failed int) {
	for _, m := range r.Messages {
		if m.Status.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
