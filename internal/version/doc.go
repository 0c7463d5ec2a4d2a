// Package version exposes build metadata for siren-guard and siren-ctl.
//
// Version, Commit and BuildTime are injected with -ldflags -X at build time.
package version
