// Package cloud connects the hub to the Hearthwire relay over MQTT.
//
// This package manages:
//   - Connection to the relay broker with auto-reconnect
//   - Inbound command envelopes parsed from relay messages
//   - Outbound replies, events, and volatile state updates
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The relay authenticates each hub by its server id and install id and
// bridges it to the owner's mobile and web apps. Commands arrive on the
// hub's command topic, replies go back on a per-request reply topic,
// and broadcasts fan out on event topics the apps subscribe to.
//
//	Apps ↔ Hearthwire Relay ↔ this hub
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against the relay ACL
//   - Caller identity on inbound commands is asserted by the relay,
//     which has already authenticated the app user
//
// # Usage
//
//	client, err := cloud.Connect(cfg.Cloud, cfg.Hub)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	channel := cloud.NewChannel(client, dispatcher, bus, cfg)
//	if err := channel.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cloud
