package logs

import (
	"testing"
	"time"
)

func ts(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}

func TestJoin_SortsAscending(t *testing.T) {
	events := []Event{
		{Timestamp: ts(1700000003000), Message: "third  "},
		{Timestamp: ts(1700000001000), Message: "first\n"},
		{Timestamp: ts(1700000002000), Message: "second"},
	}
	got := Join(events, 10)
	want := "2023-11-14T22:13:21.000Z first\n" +
		"2023-11-14T22:13:22.000Z second\n" +
		"2023-11-14T22:13:23.000Z third"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestJoin_KeepsMostRecentTail(t *testing.T) {
	events := []Event{
		{Timestamp: ts(3000), Message: "c"},
		{Timestamp: ts(1000), Message: "a"},
		{Timestamp: ts(2000), Message: "b"},
	}
	got := Join(events, 2)
	want := "1970-01-01T00:00:02.000Z b\n1970-01-01T00:00:03.000Z c"
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestJoin_BareMessageAndTrim(t *testing.T) {
	events := []Event{
		{Message: "  no timestamp  "},
		{Timestamp: ts(1000), Message: "with"},
	}
	got := Join(events, 5)
	if got != "no timestamp\n1970-01-01T00:00:01.000Z with" {
		t.Fatalf("got %q", got)
	}
	if Join(nil, 5) != "" {
		t.Fatal("empty input must give empty blob")
	}
}

func TestFilterLines(t *testing.T) {
	text := "agent | Room joined\nsip | INVITE\nagent | room left"
	if got := FilterLines(text, "ROOM"); got != "agent | Room joined\nagent | room left" {
		t.Fatalf("got %q", got)
	}
	if FilterLines(text, "") != text {
		t.Fatal("empty filter must keep text")
	}
}
