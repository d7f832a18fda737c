// Package credpool rotates upstream API credentials and quarantines the
// ones that stopped working.
package credpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
	"github.com/okian/fanscore/pkg/metrics"
)

const defaultProbeInterval = 5 * time.Minute

// FailureReason classifies why a call with a credential failed.
type FailureReason string

// Known failure reasons. Quota and invalid-key failures deactivate the
// credential; anything else leaves it in rotation.
const (
	ReasonQuotaExceeded FailureReason = "quota_exceeded"
	ReasonInvalidKey    FailureReason = "invalid_key"
	ReasonOther         FailureReason = "other"
)

// CredentialStore is the slice of the repository the pool needs.
type CredentialStore interface {
	Credentials(ctx context.Context) ([]model.Credential, error)
	SetCredentialActive(ctx context.Context, id int64, active bool) error
	TouchCredential(ctx context.Context, id int64) error
}

// ProbeFunc issues one lightweight upstream call with the credential and
// returns nil when the credential works again.
type ProbeFunc func(ctx context.Context, cred model.Credential) error

// Pool hands out credentials round-robin and tracks their health. All
// state transitions go through one mutex; the probe loop reports back
// through the same lock.
type Pool struct {
	mu    sync.Mutex
	creds []model.Credential
	next  int

	store         CredentialStore
	probe         ProbeFunc
	probeInterval time.Duration
	log           logger.Logger
}

// New loads the stored credentials and builds a pool over them.
func New(ctx context.Context, store CredentialStore, opts ...Option) (*Pool, error) {
	creds, err := store.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	p := &Pool{
		creds:         creds,
		store:         store,
		probeInterval: defaultProbeInterval,
		log:           logger.Get().Named("credpool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	metrics.UpdateCredentialsActive(p.ActiveCount())
	return p, nil
}

// Next returns the next active credential in rotation and bumps its
// quota counter in the store. Returns ErrNoCredentials when every
// credential is inactive.
func (p *Pool) Next(ctx context.Context) (model.Credential, error) {
	p.mu.Lock()
	cred, ok := p.advance()
	p.mu.Unlock()
	if !ok {
		return model.Credential{}, ErrNoCredentials
	}

	if err := p.store.TouchCredential(ctx, cred.ID); err != nil {
		p.log.Warn(ctx, "failed to record credential use",
			logger.Int64("credentialID", cred.ID),
			logger.Error(err),
		)
	}
	return cred, nil
}

// advance finds the next active credential starting at the rotation
// index. Caller holds the lock.
func (p *Pool) advance() (model.Credential, bool) {
	for i := 0; i < len(p.creds); i++ {
		idx := (p.next + i) % len(p.creds)
		if !p.creds[idx].Active {
			continue
		}
		p.next = (idx + 1) % len(p.creds)
		p.creds[idx].QuotaUsed++
		p.creds[idx].LastUsedAt = time.Now()
		return p.creds[idx], true
	}
	return model.Credential{}, false
}

// ReportFailure records the outcome of a failed call. Quota and
// invalid-key failures take the credential out of rotation until a probe
// brings it back; other failures keep it in rotation.
func (p *Pool) ReportFailure(ctx context.Context, cred model.Credential, reason FailureReason) {
	if reason != ReasonQuotaExceeded && reason != ReasonInvalidKey {
		return
	}

	p.mu.Lock()
	changed := p.setActive(cred.ID, false)
	p.mu.Unlock()
	if !changed {
		return
	}

	if err := p.store.SetCredentialActive(ctx, cred.ID, false); err != nil {
		p.log.Error(ctx, "failed to persist credential deactivation",
			logger.Int64("credentialID", cred.ID),
			logger.Error(err),
		)
	}
	p.log.Warn(ctx, "credential deactivated",
		logger.Int64("credentialID", cred.ID),
		logger.String("reason", string(reason)),
	)
	metrics.RecordCredentialDeactivated(string(reason))
	metrics.UpdateCredentialsActive(p.ActiveCount())
}

// RunProbe re-tests inactive credentials on a fixed interval until ctx is
// cancelled. Runs on its own schedule and never blocks callers of Next.
func (p *Pool) RunProbe(ctx context.Context) {
	if p.probe == nil {
		p.log.Warn(ctx, "no probe configured, inactive credentials will stay inactive")
		return
	}

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeInactive(ctx)
		}
	}
}

func (p *Pool) probeInactive(ctx context.Context) {
	p.mu.Lock()
	var inactive []model.Credential
	for _, c := range p.creds {
		if !c.Active {
			inactive = append(inactive, c)
		}
	}
	p.mu.Unlock()

	for _, cred := range inactive {
		if err := p.probe(ctx, cred); err != nil {
			p.log.Debug(ctx, "credential still failing",
				logger.Int64("credentialID", cred.ID),
				logger.Error(err),
			)
			continue
		}

		p.mu.Lock()
		changed := p.setActive(cred.ID, true)
		p.mu.Unlock()
		if !changed {
			continue
		}

		if err := p.store.SetCredentialActive(ctx, cred.ID, true); err != nil {
			p.log.Error(ctx, "failed to persist credential reactivation",
				logger.Int64("credentialID", cred.ID),
				logger.Error(err),
			)
		}
		p.log.Info(ctx, "credential reactivated",
			logger.Int64("credentialID", cred.ID),
		)
		metrics.RecordCredentialReactivated()
		metrics.UpdateCredentialsActive(p.ActiveCount())
	}
}

// setActive flips the in-memory flag. Caller holds the lock. Returns
// false when the credential is unknown or already in that state.
func (p *Pool) setActive(id int64, active bool) bool {
	for i := range p.creds {
		if p.creds[i].ID != id {
			continue
		}
		if p.creds[i].Active == active {
			return false
		}
		p.creds[i].Active = active
		return true
	}
	return false
}

// ActiveCount returns how many credentials are currently in rotation.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.creds {
		if c.Active {
			n++
		}
	}
	return n
}

// Size returns the total number of credentials, active or not.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}
