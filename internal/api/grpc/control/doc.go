// Package control implements the gRPC control surface of the siren daemon.
//
// The service is registered by hand on top of protobuf well-known types:
// requests and responses are google.protobuf.Struct values, so the wire shape
// follows the logical topics and payloads of the daemon without generated code.
package control
