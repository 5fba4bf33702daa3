package synth_test

import (
	"testing"

	"github.com/a11ykit/announce/synth"
)

func TestDedupeVoices(t *testing.T) {
	voices := []synth.Voice{
		{Name: "Alice", Lang: "en-US"},
		{Name: "Bob", Lang: "en-GB"},
		{Name: "Alice", Lang: "en-AU"},
	}

	got := synth.DedupeVoices(voices)
	if len(got) != 2 {
		t.Fatalf("deduped to %d voices, want 2", len(got))
	}
	if got[0].Name != "Alice" || got[0].Lang != "en-US" {
		t.Fatal("dedupe did not keep the first occurrence")
	}
	if got[1].Name != "Bob" {
		t.Fatal("dedupe reordered the list")
	}
}

func TestPrioritizedVoices(t *testing.T) {
	voices := []synth.Voice{
		{Name: "Fred"},
		{Name: "Alice"},
		{Name: "Google US English"},
		{Name: "Bob"},
		{Name: "Google UK English Female"},
	}

	got := synth.PrioritizedVoices(voices)
	want := []string{
		"Google US English",
		"Google UK English Female",
		"Alice",
		"Bob",
		"Fred",
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("order = %v, want %v at %d", got[i].Name, name, i)
		}
	}

	// The input is not mutated.
	if voices[0].Name != "Fred" {
		t.Fatal("PrioritizedVoices mutated its input")
	}
}
