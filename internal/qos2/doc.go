// Package qos2 observes the inbound QoS 2 handshake for diagnostic logging.
//
// For every inbound QoS 2 PUBLISH the client answers with PUBREC, and for
// the PUBREL that follows it answers with PUBCOMP. The Interceptor is told
// about both steps through immutable value snapshots. It logs them and
// returns nothing, so it cannot alter what goes on the wire. Any panic in
// the logging path is recovered inside the interceptor.
//
// The interceptor holds no state between calls. Correlation of a PUBLISH
// with its PUBREL is by packet identifier, carried in the snapshots.
package qos2
