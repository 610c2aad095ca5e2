// Package local provides the local-network control server.
//
// Clients on the home network connect over WebSocket instead of going
// through the cloud relay, which keeps control working when the uplink
// is down and keeps camera streams off the metered path. The server
// only accepts connections from private-network origins and
// authenticates each client with a session token or an API key before
// any command envelope is constructed.
//
// The WebSocket protocol carries:
//   - command/reply pairs routed through the hub dispatcher
//   - broadcast events pushed from the relay
//   - camera streaming subscriptions, reference-counted per stream key
//     so the camera pipeline runs only while someone is watching
//   - recording playback sessions keyed by a generated playback id
//
// Lifecycle follows the infrastructure pattern:
//
//	server, err := local.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package local
