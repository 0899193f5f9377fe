package mqttbridge

import "errors"

var (
	// ErrAckTimeout is returned by Relay.Open when the relay does not
	// acknowledge the command in time.
	ErrAckTimeout = errors.New("mqttbridge: relay did not acknowledge")

	// ErrRelayFailed is returned when the relay acknowledges with a failure.
	ErrRelayFailed = errors.New("mqttbridge: relay reported failure")

	// ErrMalformedLockSignal is returned by Locker.WaitForLock when the lock
	// signal is not a lock request.
	ErrMalformedLockSignal = errors.New("mqttbridge: malformed lock signal")
)
