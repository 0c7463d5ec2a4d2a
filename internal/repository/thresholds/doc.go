// Package thresholds implements persistence for the siren ThresholdSet.
//
// FileRepository keeps the bounds in a YAML file replaced atomically on every
// save; SQLiteRepository keeps them as key/value rows. Both satisfy Repository,
// which is what the siren core depends on.
package thresholds
