// Package hub is the command-routing core.
//
// Transports hand inbound commands to the Dispatcher as Envelopes. The
// Dispatcher authorizes the caller, fans the command out to every
// registered Driver that handles it, aggregates the replies (single
// responder, multi responder, or none), enforces the response timeout,
// filters the result for grouped callers, and delivers exactly one
// reply. Outbound events flow through the Relay, which fans them out to
// the cloud channel, the local channel, and the in-process Bus.
//
// Authorization failures, unknown commands, and timeouts are not
// errors. They are normal protocol outcomes, tagged onto the reply with
// a Reason so clients can distinguish them from success payloads.
package hub
