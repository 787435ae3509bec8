package model

// Envelope is the campaign job payload published to Kafka (via Debezium outbox SMT).
type Envelope struct {
	ID       string `json:"id"`        // campaign ULID
	TenantID string `json:"tenant_id"` // salon account id
}
