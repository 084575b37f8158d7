package marketday

import (
	"testing"
	"time"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestResolveBeforeCutoff(t *testing.T) {
	loc := istanbul(t)
	r := New(loc, 18, 30)

	// Tuesday morning: Monday's NAV is still effective.
	now := time.Date(2024, 5, 7, 10, 0, 0, 0, loc)
	if got := r.Resolve(now); got != "2024-05-06" {
		t.Fatalf("Tuesday 10:00 should resolve to Monday, got %s", got)
	}
}

func TestResolveAfterCutoff(t *testing.T) {
	loc := istanbul(t)
	r := New(loc, 18, 30)

	now := time.Date(2024, 5, 7, 19, 0, 0, 0, loc)
	if got := r.Resolve(now); got != "2024-05-07" {
		t.Fatalf("Tuesday 19:00 should resolve to Tuesday, got %s", got)
	}
}

func TestResolveMondayMorningSkipsWeekend(t *testing.T) {
	loc := istanbul(t)
	r := New(loc, 18, 30)

	now := time.Date(2024, 5, 6, 9, 0, 0, 0, loc)
	if got := r.Resolve(now); got != "2024-05-03" {
		t.Fatalf("Monday 09:00 should resolve to Friday, got %s", got)
	}
}

func TestResolveWeekend(t *testing.T) {
	loc := istanbul(t)
	r := New(loc, 18, 30)

	for _, tc := range []struct {
		name string
		now  time.Time
		want string
	}{
		{"saturday noon", time.Date(2024, 5, 4, 12, 0, 0, 0, loc), "2024-05-03"},
		{"sunday evening", time.Date(2024, 5, 5, 20, 0, 0, 0, loc), "2024-05-03"},
		{"sunday early", time.Date(2024, 5, 5, 2, 0, 0, 0, loc), "2024-05-03"},
	} {
		if got := r.Resolve(tc.now); got != tc.want {
			t.Errorf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestResolveMonotonic(t *testing.T) {
	loc := istanbul(t)
	r := New(loc, 18, 30)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	prev := r.Resolve(start)
	for i := 1; i < 7*24; i++ {
		cur := r.Resolve(start.Add(time.Duration(i) * time.Hour))
		if cur < prev {
			t.Fatalf("resolved day went backwards: %s -> %s at +%dh", prev, cur, i)
		}
		prev = cur
	}
}

func TestSession(t *testing.T) {
	loc := istanbul(t)
	s := NewSession(loc, 9, 40, 18, 10)

	if !s.IsOpen(time.Date(2024, 5, 7, 12, 0, 0, 0, loc)) {
		t.Fatal("Tuesday noon should be open")
	}
	if s.IsOpen(time.Date(2024, 5, 7, 9, 0, 0, 0, loc)) {
		t.Fatal("before the open should be closed")
	}
	if s.IsOpen(time.Date(2024, 5, 7, 18, 30, 0, 0, loc)) {
		t.Fatal("after the close should be closed")
	}
	if s.IsOpen(time.Date(2024, 5, 4, 12, 0, 0, 0, loc)) {
		t.Fatal("Saturday should be closed")
	}

	if got := s.Ratio(time.Date(2024, 5, 7, 9, 40, 0, 0, loc)); got != 0 {
		t.Fatalf("ratio at open = %v, want 0", got)
	}
	if got := s.Ratio(time.Date(2024, 5, 7, 18, 10, 0, 0, loc)); got != 1 {
		t.Fatalf("ratio at close = %v, want 1", got)
	}
	mid := s.Ratio(time.Date(2024, 5, 7, 13, 55, 0, 0, loc))
	if mid < 0.49 || mid > 0.51 {
		t.Fatalf("ratio at midpoint = %v", mid)
	}
	if got := s.Ratio(time.Date(2024, 5, 7, 20, 0, 0, 0, loc)); got != 1 {
		t.Fatalf("ratio after close = %v, want clamped 1", got)
	}
}
