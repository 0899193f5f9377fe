// Package mqtt provides MQTT client connectivity for Doorman.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing and wildcard subscriptions
//   - Last Will and Testament (LWT) for offline detection
//   - The topic scheme shared with scanners, approvers and relays
//
// # Topics
//
// All topics live under a configurable prefix (default "doorman"):
//
//	doorman/presence/{scanner}      sightings from remote scanners
//	doorman/auth/request/{id}       approval requests
//	doorman/auth/response/{id}      approval decisions
//	doorman/actuator/command        open commands for the relay
//	doorman/actuator/ack/{id}       relay acknowledgements
//	doorman/lock/prompt             door waits for a lock signal
//	doorman/lock/signal             lock requests
//	doorman/lock/confirmed          door locked
//	doorman/event/{kind}            protocol events
//	doorman/system/status           online/offline (retained, LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllPresence(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleSighting(mqtt.LastSegment(topic), payload)
//	    })
package mqtt
