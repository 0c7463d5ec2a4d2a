// Package siren contains the core domain types of the distance siren.
//
// It defines the severity Level, the ThresholdSet a distance is classified
// against, the control Mode, the Override record and the Status snapshot,
// plus Classify, the pure function mapping a distance to a Level.
package siren
