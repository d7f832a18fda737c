// Package model contains domain models passed between layers.
package model

import "time"

// EventKind identifies the type of a chat event.
type EventKind string

// Known event kinds.
const (
	KindPlainMessage EventKind = "plain_message"
	KindPaidMessage  EventKind = "paid_message"
	KindMembership   EventKind = "membership"
	KindOther        EventKind = "other"
)

const microsPerUnit = 1_000_000

// ChatEvent represents a single live chat message as received from the
// upstream stream API. Immutable once constructed; identity is ExternalID.
type ChatEvent struct {
	ExternalID   string    // upstream message id, used for idempotent admission
	Author       string    // display name of the author
	RawText      string    // message text (user comment for paid messages)
	Kind         EventKind // message classification from the upstream payload
	AmountMicros int64     // paid amount in micros of Currency; zero when not paid
	Currency     string    // ISO currency code of the paid amount
	ObservedAt   time.Time // upstream publish timestamp
}

// Paid reports whether the event carries money.
func (e ChatEvent) Paid() bool {
	return e.Kind == KindPaidMessage
}

// Amount returns the paid amount in whole currency units.
func (e ChatEvent) Amount() float64 {
	return float64(e.AmountMicros) / microsPerUnit
}

// Participant is a roster entry eligible to receive points.
type Participant struct {
	ID       int64
	Name     string
	Slug     string
	Keywords []string
	Active   bool // false = withdrawn from competition, excluded everywhere
}

// PointAward is a single per-participant point increment produced by one event.
type PointAward struct {
	EventID     string
	Participant string
	Points      int64
	CreatedAt   time.Time
}

// AwardSummary describes a completed award for the delivery sink.
type AwardSummary struct {
	ID           string
	EventID      string
	Author       string
	Message      string
	Participants []string
	PointsEach   int64
	PooledAmount float64
	Description  string
	At           time.Time
}

// Observation is handed to the learning sink for every ingested event,
// whether or not points were awarded.
type Observation struct {
	EventID      string
	Author       string
	RawText      string
	Kind         EventKind
	USDAmount    float64
	Participants []string
	Method       string
	Confidence   int
}

// Cursor is the poller's resumption state. An empty PageToken means
// start of stream.
type Cursor struct {
	PageToken       string
	LastProcessedAt time.Time
}

// Credential is a rotating upstream API key.
type Credential struct {
	ID         int64
	APIKey     string
	Active     bool
	QuotaUsed  int64
	LastUsedAt time.Time
}
