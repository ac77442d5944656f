package domain

import (
	"errors"
	"testing"
)

func TestParseHHMM(t *testing.T) {
	cases := map[string]HHMM{
		"8:05":   "08:05",
		"08:05":  "08:05",
		" 23:59": "23:59",
		"0:00":   "00:00",
	}
	for in, want := range cases {
		got, err := ParseHHMM(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: want %s, got %s", in, want, got)
		}
	}
}

func TestParseHHMM_Invalid(t *testing.T) {
	if _, err := ParseHHMM(""); !errors.Is(err, ErrEmptyClock) {
		t.Fatalf("want ErrEmptyClock, got %v", err)
	}
	for _, in := range []string{"24:00", "12:60", "12:5", "noon", "12-30"} {
		if _, err := ParseHHMM(in); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("%q: want ErrInvalidClock, got %v", in, err)
		}
	}
}

func TestParseHHMMList_Dedupes(t *testing.T) {
	got, err := ParseHHMMList([]string{"9:00", "09:00", "18:30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "09:00" || got[1] != "18:30" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestParseSubscriptionState_Legacy(t *testing.T) {
	cases := map[string]SubscriptionState{
		"active":   SubscriptionActive,
		"trialing": SubscriptionTrialing,
		"canceled": SubscriptionCanceled,
		"inactive": SubscriptionInactive,
		"true":     SubscriptionActive,
		"false":    SubscriptionInactive,
		"":         SubscriptionInactive,
	}
	for in, want := range cases {
		got, err := ParseSubscriptionState(in)
		if err != nil || got != want {
			t.Fatalf("%q: want %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseSubscriptionState("gold"); !errors.Is(err, ErrInvalidSubscriptionState) {
		t.Fatalf("want ErrInvalidSubscriptionState, got %v", err)
	}
}

func TestPromptFor_FallsBackToGentle(t *testing.T) {
	if PromptFor("unknown") != PromptFor(ToneGentle) {
		t.Fatal("unknown tone should use the gentle prompt")
	}
	if PromptFor(ToneSnarky) == PromptFor(ToneGentle) {
		t.Fatal("snarky prompt should differ from gentle")
	}
}
