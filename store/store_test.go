package store

import (
	"context"
	"testing"
)

func TestStore_Append_EmptyDevice(t *testing.T) {
	s := New(nil)
	if err := s.Append(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty device")
	}
}

func TestStore_Last_InvalidLimit(t *testing.T) {
	s := New(nil)
	for _, n := range []int{0, -1, -100} {
		if _, err := s.Last(context.Background(), "dev", n); err == nil {
			t.Errorf("limit %d: expected error", n)
		}
	}
}
