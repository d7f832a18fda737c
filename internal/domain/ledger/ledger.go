// Package ledger computes per-participant point increments for a paid event.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/fanscore/internal/domain/model"
)

// Distribution is the outcome of applying the distribution policy to one event.
type Distribution struct {
	// Awards holds one row per credited participant. Empty when the whole
	// amount went to the pool.
	Awards []model.PointAward
	// Pooled is the USD amount accrued to the shared pool balance.
	Pooled float64
	// Description states which rule fired, for the delivery summary.
	Description string
}

// Option applies a configuration option to the Distributor.
type Option func(*Distributor)

// WithClock overrides the award timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Distributor) {
		if now != nil {
			d.now = now
		}
	}
}

// Distributor turns a classified event amount into point increments.
// Rounding is floor division everywhere; the remainder below one point
// per head is intentionally dropped.
type Distributor struct {
	now func() time.Time
}

// New creates a Distributor with configuration options.
func New(opts ...Option) *Distributor {
	d := &Distributor{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Distribute computes the point increments for one event.
//
// When participants is non-empty the amount is split evenly among exactly
// those participants. When it is empty the pooling rule applies: an amount
// smaller than the active roster size accrues whole to the pool, anything
// larger is split among every active participant.
func (d *Distributor) Distribute(eventID string, participants []string, usdAmount float64, roster []model.Participant) Distribution {
	if usdAmount <= 0 {
		return Distribution{Description: "no amount to distribute"}
	}

	if len(participants) > 0 {
		each := int64(usdAmount) / int64(len(participants))
		return Distribution{
			Awards:      d.awards(eventID, participants, each),
			Description: fmt.Sprintf("%d points each to %s", each, joinNames(participants)),
		}
	}

	n := activeCount(roster)
	if n == 0 {
		return Distribution{
			Pooled:      usdAmount,
			Description: fmt.Sprintf("%.2f USD added to the pool, no active participants", usdAmount),
		}
	}

	if usdAmount < float64(n) {
		return Distribution{
			Pooled:      usdAmount,
			Description: fmt.Sprintf("%.2f USD added to the pool, too small to split among %d participants", usdAmount, n),
		}
	}

	each := int64(usdAmount) / int64(n)
	names := activeNames(roster)
	return Distribution{
		Awards:      d.awards(eventID, names, each),
		Description: fmt.Sprintf("unattributed, %d points each to all %d active participants", each, n),
	}
}

func (d *Distributor) awards(eventID string, names []string, each int64) []model.PointAward {
	now := d.now()
	out := make([]model.PointAward, 0, len(names))
	for _, name := range names {
		out = append(out, model.PointAward{
			EventID:     eventID,
			Participant: name,
			Points:      each,
			CreatedAt:   now,
		})
	}
	return out
}

func activeCount(roster []model.Participant) int {
	n := 0
	for _, p := range roster {
		if p.Active {
			n++
		}
	}
	return n
}

func activeNames(roster []model.Participant) []string {
	names := make([]string, 0, len(roster))
	for _, p := range roster {
		if p.Active {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
