// Package monitor is the live terminal view behind "siren-ctl monitor".
//
// It follows the daemon's event stream and offers single-key shortcuts for
// mode and override changes.
package monitor
