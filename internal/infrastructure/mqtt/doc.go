// Package mqtt provides MQTT client connectivity for WebGate.
//
// This package manages:
//   - Connection to the device-local broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The broker is the bus between the web core and the other processes on
// the unit. The core publishes the current PIN frame for the screen
// process and auth outcomes for anything that wants to react to them, and
// it listens for maintenance commands.
//
//	WebGate ↔ MQTT Broker ↔ Screen process / maintenance tools
//
// # Security Considerations
//
//   - The display topic carries the live PIN; restrict it with broker ACLs
//   - TLS is available for brokers that are not on the loopback interface
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Command(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("command: %s", payload)
//	        return nil
//	    })
//
//	client.PublishJSON(mqtt.Topics{}.DisplayAuth(), frame, true)
package mqtt
