// Package ui turns command lifecycle events into short console messages.
//
// Structured telemetry keeps flowing through the zap logger; this package only
// covers what a person watching a release run needs to read.
package ui
