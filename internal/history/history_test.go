package history

import (
	"testing"

	"github.com/msallam/certstore/internal/models"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"", ""},
		{"  trimmed  ", "trimmed"},
		{500, "500"},
		{500.0, "500"},
		{500.5, "500.5"},
		{int64(7), "7"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDiffDetectsRealChangesOnly(t *testing.T) {
	before := &models.Certificate{
		Activity:     "bakery",
		Name:         "Corner Bakery",
		Location:     "Main St",
		Area:         120,
		PersonsCount: 5,
		TrainingFee:  2500,
	}
	after := *before
	after.Activity = "  bakery  " // whitespace only: not a change
	after.Area = 150
	after.TrainingFee = 2500

	changes := Diff(before, &after, TrackedFields)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1: %+v", len(changes), changes)
	}
	ch := changes[0]
	if ch.Field != "area" {
		t.Errorf("changed field = %q, want area", ch.Field)
	}
	// raw values, not normalized strings
	if ch.OldValue != 120.0 || ch.NewValue != 150.0 {
		t.Errorf("raw values = %v -> %v, want 120 -> 150", ch.OldValue, ch.NewValue)
	}
}

func TestDiffIdentical(t *testing.T) {
	c := &models.Certificate{Activity: "cafe", Name: "n", Area: 50, PersonsCount: 2}
	same := *c
	if changes := Diff(c, &same, TrackedFields); len(changes) != 0 {
		t.Fatalf("identical records produced changes: %+v", changes)
	}
}

func TestDiffOrderFollowsTrackedFields(t *testing.T) {
	before := &models.Certificate{Activity: "a", Name: "b", UserName: "u1", Area: 10}
	after := *before
	after.UserName = "u2"
	after.Activity = "z"

	changes := Diff(before, &after, TrackedFields)
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[0].Field != "activity" || changes[1].Field != "user_name" {
		t.Errorf("change order = [%s, %s], want [activity, user_name]",
			changes[0].Field, changes[1].Field)
	}
}

func TestSnapshotVersioned(t *testing.T) {
	c := &models.Certificate{ID: 9, Name: "n", Activity: "a"}
	snap := Snapshot(c)
	if snap.Version != models.SnapshotVersion {
		t.Errorf("snapshot version = %d, want %d", snap.Version, models.SnapshotVersion)
	}
	if snap.ID != 9 || snap.Name != "n" {
		t.Errorf("snapshot did not copy certificate state: %+v", snap)
	}
}
