package model

import "testing"

func TestClockNeverRunsBackward(t *testing.T) {
	c := NewClock(10)
	c.SetIfGreater(20)
	if c.Now() != 20 {
		t.Fatalf("expected 20, got %d", c.Now())
	}
	c.SetIfGreater(5)
	if c.Now() != 20 {
		t.Fatalf("expected clock to stay at 20, got %d", c.Now())
	}
}
