// Package daemon wires the siren-guard process: configuration, threshold
// storage, sensor, relay, the siren controller with its router and
// acquisition loop, and the gRPC control server.
package daemon
