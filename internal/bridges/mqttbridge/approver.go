package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/device"
)

// ApprovalRequest is published on auth/request/{id}.
type ApprovalRequest struct {
	ID             string        `json:"id"`
	Site           string        `json:"site"`
	Device         device.Device `json:"device"`
	TimeoutSeconds int           `json:"timeout_seconds,omitempty"`
	RequestedAt    time.Time     `json:"requested_at"`
}

// ApprovalResponse is expected on auth/response/{id}.
type ApprovalResponse struct {
	Decision string `json:"decision"`
}

// Approver asks a remote approver (phone app, home automation) to decide
// on a detected device.
type Approver struct {
	bus    Bus
	site   string
	logger Logger
}

var _ access.Authenticator[device.Device] = (*Approver)(nil)

// NewApprover creates an MQTT authenticator for site.
func NewApprover(bus Bus, site string) *Approver {
	return &Approver{bus: bus, site: site, logger: noopLogger{}}
}

// SetLogger sets the logger for the approver.
func (a *Approver) SetLogger(logger Logger) {
	a.logger = orNoop(logger)
}

// Authenticate publishes an approval request and waits for the matching
// response. Responses that are not a valid decision are ignored. When
// timeout passes without a decision the result is Deny.
func (a *Approver) Authenticate(ctx context.Context, dev device.Device, timeout time.Duration) (access.Result, error) {
	id := uuid.NewString()
	topics := a.bus.Topics()

	decisions := make(chan access.Result, 1)
	responseTopic := topics.AuthResponse(id)
	err := a.bus.Subscribe(responseTopic, a.bus.QoS(), func(_ string, payload []byte) error {
		var resp ApprovalResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("decoding approval response: %w", err)
		}
		result, err := access.ParseResult(resp.Decision)
		if err != nil {
			return err
		}
		select {
		case decisions <- result:
		default:
		}
		return nil
	})
	if err != nil {
		return access.Deny, fmt.Errorf("subscribing to approval response: %w", err)
	}
	defer unsubscribe(a.bus, responseTopic, a.logger)

	req := ApprovalRequest{
		ID:             id,
		Site:           a.site,
		Device:         dev,
		TimeoutSeconds: int(timeout / time.Second),
		RequestedAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return access.Deny, fmt.Errorf("encoding approval request: %w", err)
	}
	if err := a.bus.Publish(topics.AuthRequest(id), payload, a.bus.QoS(), false); err != nil {
		return access.Deny, fmt.Errorf("publishing approval request: %w", err)
	}
	a.logger.Info("approval requested", "request_id", id, "device", dev.String())

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case result := <-decisions:
		a.logger.Info("approval decided", "request_id", id, "result", result.String())
		return result, nil
	case <-expired:
		a.logger.Info("approval timed out", "request_id", id, "timeout", timeout)
		return access.Deny, nil
	case <-ctx.Done():
		return access.Deny, ctx.Err()
	}
}
