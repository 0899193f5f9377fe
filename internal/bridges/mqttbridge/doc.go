// Package mqttbridge implements the door capabilities over the MQTT bus.
//
// Each type in this package plays one role in the access protocol:
//
//	Presence  presence/+             -> presence.Tracker (Detector)
//	Approver  auth/request/{id}      <- auth/response/{id}   (Authenticator)
//	Relay     actuator/command       <- actuator/ack/{id}    (Actuator)
//	Locker    lock/prompt, lock/signal -> lock/confirmed     (Locker)
//	Events    event/{kind}                                   (Recorder)
//
// All of them talk to the broker through the Bus interface, which the
// infrastructure mqtt.Client satisfies.
package mqttbridge
