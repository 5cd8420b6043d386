package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("defaults to the reference time", func(t *testing.T) {
		if got := NewClock(time.Time{}).Current(); !got.Equal(ReferenceTime()) {
			t.Fatalf("expected %v, got %v", ReferenceTime(), got)
		}
	})

	t.Run("now func follows advances", func(t *testing.T) {
		clock := NewClock(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
		now := clock.NowFunc()

		moved := clock.Advance(36 * time.Hour)
		if !moved.Equal(time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected advanced time %v", moved)
		}
		if got := now(); !got.Equal(moved) {
			t.Fatalf("expected now func to return %v, got %v", moved, got)
		}
	})

	t.Run("nil clock uses wall time", func(t *testing.T) {
		var clock *Clock
		if clock.NowFunc()().IsZero() {
			t.Fatalf("expected wall time from nil clock")
		}
	})
}

func TestSequence(t *testing.T) {
	seq := NewSequence("listing")
	if first, second := seq.Next(), seq.Next(); first != "listing-1" || second != "listing-2" {
		t.Fatalf("unexpected values %q %q", first, second)
	}
	if seq.Issued() != 2 {
		t.Fatalf("expected 2 issued, got %d", seq.Issued())
	}

	if got := NewSequence("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}

	var nilSeq *Sequence
	if got := nilSeq.NextFunc()(); got != "" {
		t.Fatalf("expected empty value from nil sequence, got %q", got)
	}
}
