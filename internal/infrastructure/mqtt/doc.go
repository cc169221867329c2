// Package mqtt provides MQTT client connectivity for Control Loop Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Token-based authentication via a credentials provider
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Connection health monitoring
//
// # Authentication
//
// The broker authenticates sessions with a time-limited access token
// presented as the MQTT username. The CredentialsProvider is consulted on
// every connection attempt, including automatic reconnects, so a dropped
// connection picks up a fresh token rather than replaying a stale one.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Access tokens are never logged
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, func() (string, string) {
//	    cred, _ := tokenManager.Token(context.Background())
//	    return cred.AccessToken, ""
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("sensor1/+", 1,
//	    func(topic string, payload []byte) error {
//	        // dispatch
//	        return nil
//	    })
package mqtt
