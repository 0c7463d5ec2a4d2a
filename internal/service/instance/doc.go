// Package instance keeps a single siren daemon per host.
//
// Two daemons driving the same relay would each believe they own it, so start-up
// refuses to continue when another process runs the same executable.
package instance
