package model

import "testing"

func TestEventBookable(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{EventStatusDraft, false},
		{EventStatusPublished, true},
		{EventStatusClosed, false},
		{"", false},
	}
	for _, c := range cases {
		ev := Event{PublishStatus: c.status}
		if got := ev.Bookable(); got != c.want {
			t.Errorf("Bookable() for status %q = %v, want %v", c.status, got, c.want)
		}
	}
}
