// Package sensor provides distance readers.
//
// Serial follows an ultrasonic ranger that streams one reading per line;
// File reads the latest value from a file such as an IIO sysfs attribute.
package sensor
