package res

import (
	"testing"

	"corekernel/bounds"
)

func TestResaddNoblockDeniesWhenExhausted(t *testing.T) {
	lm := newLimiter(defaultChunk)
	old := l
	l = lm
	defer func() { l = old }()

	if !Resadd_noblock(bounds.B_USERBUF_T__TX) {
		t.Fatal("expected first reservation to succeed")
	}
	if Resadd_noblock(bounds.B_USERBUF_T__TX) {
		t.Fatal("expected second reservation to be denied")
	}
	Resreturn(defaultChunk)
	if !Resadd_noblock(bounds.B_USERBUF_T__TX) {
		t.Fatal("expected reservation to succeed after return")
	}
}

func TestFetchReportsAccounting(t *testing.T) {
	lm := newLimiter(1 << 20)
	old := l
	l = lm
	defer func() { l = old }()

	Resadd_noblock(bounds.B_ASPACE_T_K2USER_INNER)
	Resadd_noblock(bounds.B_ASPACE_T_K2USER_INNER)
	s := Fetch()
	if s.Granted[bounds.B_ASPACE_T_K2USER_INNER] != 2 {
		t.Fatalf("got %d", s.Granted[bounds.B_ASPACE_T_K2USER_INNER])
	}
}
