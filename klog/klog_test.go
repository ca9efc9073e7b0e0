package klog

import "testing"

func TestPrintfNoopWhenDebugDisabled(t *testing.T) {
	if Debug {
		t.Skip("Debug enabled")
	}
	// Printf must not panic even with mismatched verbs, since it's a
	// no-op when Debug is false.
	format := "%d"
	Printf(format, "not a number")
}
