// Package config loads, validates and saves the YAML settings shared by the
// alarm engine and its control client, and reads the alarm tree file.
package config
