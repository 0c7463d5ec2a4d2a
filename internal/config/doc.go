// Package config defines the settings used by siren-guard and siren-ctl and
// provides helpers to load, validate and save them in YAML format.
//
// Validate fills defaults for every optional field, so a minimal file only
// names the sensor.
package config
