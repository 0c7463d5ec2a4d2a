// Package actuator drives the siren relay.
//
// Drivers write ON/OFF to a GPIO value file, to a serial relay board, or only
// to the log. WithTimeout bounds every write so a hung device surfaces as
// ErrWriteTimeout instead of blocking the caller.
package actuator
