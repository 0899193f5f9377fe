// Package access defines the capability contracts the Doorman access-control
// core depends on.
//
// Each contract describes one exchangeable behaviour of the appliance:
//
//	Detector       waits until a registered device is present
//	Authenticator  asks a human to approve the candidate device
//	Actuator       performs the physical open action
//	Locker         waits for a re-lock signal and confirms it
//
// The manager package composes these into the access protocol. Concrete
// backends (console, MQTT, HTTP approval, BLE scanner, shell relay) live in
// their own packages and never depend on the manager.
//
// # Errors
//
// Every backend defines its own error values. The manager wraps them with the
// originating stage and never renames or swallows them, so callers can still
// match the backend cause with errors.Is:
//
//	if errors.Is(err, mqttbridge.ErrMalformedLockSignal) {
//	    // the lock backend received noise
//	}
package access
