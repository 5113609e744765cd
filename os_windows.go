//go:build windows
// +build windows

package ics

// NewLine is the default line terminator on this platform.
const NewLine = WithNewLineWindows
