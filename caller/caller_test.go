package caller

import "testing"

func TestDistinctFirstCallIsNew(t *testing.T) {
	var dc Distinct_caller_t
	dc.Enabled = true
	isnew, trace := dc.Distinct()
	if !isnew {
		t.Fatal("expected first call chain to be new")
	}
	if trace == "" {
		t.Fatal("expected a non-empty trace")
	}
}

func TestDistinctRepeatedCallIsNotNew(t *testing.T) {
	var dc Distinct_caller_t
	dc.Enabled = true
	callTwice := func() (bool, bool) {
		a, _ := dc.Distinct()
		b, _ := dc.Distinct()
		return a, b
	}
	first, second := callTwice()
	if !first {
		t.Fatal("expected first call to be new")
	}
	if second {
		t.Fatal("expected repeated call from same site to not be new")
	}
}

func TestDisabledNeverReportsDistinct(t *testing.T) {
	var dc Distinct_caller_t
	isnew, trace := dc.Distinct()
	if isnew || trace != "" {
		t.Fatal("expected disabled tracker to report nothing")
	}
}

func TestLenCountsUniquePaths(t *testing.T) {
	var dc Distinct_caller_t
	dc.Enabled = true
	dc.Distinct()
	if dc.Len() != 1 {
		t.Fatalf("expected 1 recorded path, got %d", dc.Len())
	}
}
