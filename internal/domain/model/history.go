package model

import "time"

// Outcome is the terminal state of a session.
type Outcome string

const (
	OutcomeResponded Outcome = "responded"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// InteractionRecord is one finished exchange, kept for the history log.
type InteractionRecord struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Token      string            `json:"token"`
	Outcome    Outcome           `json:"outcome"`
	Actor      string            `json:"actor"`
	Summary    string            `json:"summary"`
	Metadata   map[string]string `json:"metadata"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func NewInteractionRecord(kind Kind, token, summary string, startedAt time.Time) InteractionRecord {
	return InteractionRecord{
		ID:        NewToken(),
		Kind:      kind,
		Token:     token,
		Summary:   summary,
		Metadata:  make(map[string]string),
		StartedAt: startedAt.UTC(),
	}
}

// Finish stamps the terminal outcome.
func (r InteractionRecord) Finish(outcome Outcome, actor string, at time.Time) InteractionRecord {
	r.Outcome = outcome
	r.Actor = actor
	r.FinishedAt = at.UTC()
	return r
}

func (r InteractionRecord) WithMetadata(key, value string) InteractionRecord {
	meta := make(map[string]string, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Metadata = meta
	return r
}

// Duration is zero until the record is finished.
func (r InteractionRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
