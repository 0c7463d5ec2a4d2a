// Package ctl implements the one-shot siren-ctl commands: it dials the daemon,
// issues a single control request and prints the answer.
package ctl
