package splitter

import (
	"strings"
	"testing"
)

func TestSplitBasicSentences(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("This is one. This is two. Is this three?")
	want := []string{"This is one.", "This is two.", "Is this three?"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitProtectsAbbreviations(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("Dr. Smith met Mr. Jones. They talked.")
	if len(got) != 2 {
		t.Fatalf("expected abbreviations to not split the sentence, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[0], "Dr. Smith met Mr. Jones.") {
		t.Errorf("unexpected first sentence: %q", got[0])
	}
}

func TestSplitProtectsEllipsis(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("Well... I don't know. Maybe later.")
	if len(got) != 2 {
		t.Fatalf("expected ellipsis to not split the sentence, got %d: %v", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Well...") {
		t.Errorf("expected ellipsis preserved, got %q", got[0])
	}
}

func TestSplitProtectsDecimalsAndDomains(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("Visit example.com for pi is 3.14 today. Goodbye.")
	if len(got) != 2 {
		t.Fatalf("expected decimal/domain periods preserved, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[0], "example.com") || !strings.Contains(got[0], "3.14") {
		t.Errorf("expected domain and decimal intact, got %q", got[0])
	}
}

func TestSplitProtectsConsecutiveInitials(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("J. R. R. Tolkien wrote books. He was famous.")
	if len(got) != 2 {
		t.Fatalf("expected initials to not split the sentence, got %d: %v", len(got), got)
	}
	if got[0] != "J. R. R. Tolkien wrote books." {
		t.Errorf("unexpected first sentence: %q", got[0])
	}
	if got[1] != "He was famous." {
		t.Errorf("unexpected second sentence: %q", got[1])
	}
}

func TestSplitProtectsConsecutiveInitialsRussian(t *testing.T) {
	s, err := New("ru", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("А. С. Пушкин написал стихи.")
	if len(got) != 1 {
		t.Fatalf("expected a single sentence, got %d: %v", len(got), got)
	}
	if got[0] != "А. С. Пушкин написал стихи." {
		t.Errorf("unexpected sentence: %q", got[0])
	}
}

func TestSplitRussianAbbreviations(t *testing.T) {
	s, err := New("ru", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("Он живет на ул. Ленина. Это недалеко.")
	if len(got) != 2 {
		t.Fatalf("expected ru abbreviation protected, got %d: %v", len(got), got)
	}
}

func TestSplitLongSentenceOnSemicolon(t *testing.T) {
	s, err := New("en", 40)
	if err != nil {
		t.Fatal(err)
	}
	long := "This is the first independent clause here; and this is the second one over there."
	got := s.Split(long)
	if len(got) < 2 {
		t.Fatalf("expected long sentence to split on semicolon, got %v", got)
	}
	for _, part := range got {
		if len(part) > 60 {
			t.Errorf("split part still too long: %q (%d chars)", part, len(part))
		}
	}
}

func TestSplitLongSentenceOnConjunction(t *testing.T) {
	s, err := New("en", 30)
	if err != nil {
		t.Fatal(err)
	}
	long := "I wanted to go to the store, but it was already closed for the night."
	got := s.Split(long)
	if len(got) < 2 {
		t.Fatalf("expected long sentence to split on conjunction, got %v", got)
	}
}

func TestSplitRejectsUnsupportedLanguage(t *testing.T) {
	_, err := New("xx-nope", 0)
	if err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Split("   "); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

func TestSplitDialogueLines(t *testing.T) {
	s, err := New("en", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Split("— Hello there.\n— How are you?")
	if len(got) != 2 {
		t.Fatalf("expected dialogue lines split apart, got %d: %v", len(got), got)
	}
}

func TestSplitConvenienceFunction(t *testing.T) {
	got, err := Split("One. Two.", "en", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %v", got)
	}
}
