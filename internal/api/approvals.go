package api

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/device"
)

// Approval is a detected device waiting for an operator decision.
type Approval struct {
	ID          string        `json:"id"`
	Device      device.Device `json:"device"`
	RequestedAt time.Time     `json:"requested_at"`
	ExpiresAt   time.Time     `json:"expires_at,omitzero"`
}

type pendingApproval struct {
	Approval
	decision chan access.Result
}

// Approvals is an Authenticator that parks each request in a queue served
// over HTTP.
type Approvals struct {
	mu      sync.Mutex
	pending map[string]*pendingApproval
}

var _ access.Authenticator[device.Device] = (*Approvals)(nil)

// NewApprovals creates an empty approval queue.
func NewApprovals() *Approvals {
	return &Approvals{pending: make(map[string]*pendingApproval)}
}

// Authenticate queues dev and blocks until an operator decides, the timeout
// passes (Deny) or ctx ends.
func (a *Approvals) Authenticate(ctx context.Context, dev device.Device, timeout time.Duration) (access.Result, error) {
	now := time.Now().UTC()
	p := &pendingApproval{
		Approval: Approval{ID: uuid.NewString(), Device: dev, RequestedAt: now},
		decision: make(chan access.Result, 1),
	}

	var expired <-chan time.Time
	if timeout > 0 {
		p.ExpiresAt = now.Add(timeout)
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	a.mu.Lock()
	a.pending[p.ID] = p
	a.mu.Unlock()

	select {
	case result := <-p.decision:
		return result, nil
	case <-expired:
		if result, decided := a.withdraw(p); decided {
			return result, nil
		}
		return access.Deny, nil
	case <-ctx.Done():
		if result, decided := a.withdraw(p); decided {
			return result, nil
		}
		return access.Deny, ctx.Err()
	}
}

// withdraw removes p from the queue. If Decide claimed it first, the
// decision it already delivered is returned instead.
func (a *Approvals) withdraw(p *pendingApproval) (access.Result, bool) {
	a.mu.Lock()
	_, waiting := a.pending[p.ID]
	delete(a.pending, p.ID)
	a.mu.Unlock()

	if waiting {
		return access.Deny, false
	}
	return <-p.decision, true
}

// Decide resolves a pending approval. It fails with ErrApprovalNotFound once
// the request has expired or been withdrawn.
func (a *Approvals) Decide(id string, result access.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pending[id]
	if !ok {
		return ErrApprovalNotFound
	}
	delete(a.pending, id)
	p.decision <- result
	return nil
}

// Pending lists open approvals, oldest first.
func (a *Approvals) Pending() []Approval {
	a.mu.Lock()
	out := make([]Approval, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p.Approval)
	}
	a.mu.Unlock()

	slices.SortFunc(out, func(x, y Approval) int {
		if c := x.RequestedAt.Compare(y.RequestedAt); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return out
}
