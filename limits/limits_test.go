package limits

import "testing"

func TestTakenFailsWhenExhausted(t *testing.T) {
	var s Sysatomic_t
	s.Given(2)
	if !s.Taken(2) {
		t.Fatal("expected taking exactly the available amount to succeed")
	}
	if s.Taken(1) {
		t.Fatal("expected taking from an exhausted limit to fail")
	}
}

func TestTakenLeavesLimitUnchangedOnFailure(t *testing.T) {
	var s Sysatomic_t
	s.Given(1)
	if s.Taken(5) {
		t.Fatal("expected failure")
	}
	if !s.Take() {
		t.Fatal("expected the original unit to still be available")
	}
}

func TestGiveTakeRoundtrip(t *testing.T) {
	var s Sysatomic_t
	s.Give()
	s.Give()
	if !s.Take() {
		t.Fatal("expected take to succeed")
	}
	if !s.Take() {
		t.Fatal("expected second take to succeed")
	}
	if s.Take() {
		t.Fatal("expected third take to fail")
	}
}

func TestMkSysLimitDefaults(t *testing.T) {
	l := MkSysLimit()
	if l.Sysprocs == 0 || l.Vnodes == 0 || l.Blocks == 0 {
		t.Fatal("expected non-zero defaults")
	}
}
