// Package alarm contains core domain types of the alarm system.
//
// It defines the closed Severity scale with its acknowledged counterparts,
// the immutable State value together with its acknowledge/unacknowledge
// transitions, the TitleDetail and TitleDetailDelay configuration entries
// attached to alarm tree items, and Actor (who acknowledged an alarm).
package alarm
