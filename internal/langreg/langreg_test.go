package langreg

import "testing"

func TestGetKnownLanguage(t *testing.T) {
	lang, ok := Get("ru")
	if !ok {
		t.Fatal("expected ru to be registered")
	}
	if lang.WordfreqCode != "ru" {
		t.Errorf("expected wordfreq code ru, got %s", lang.WordfreqCode)
	}
}

func TestGetAlias(t *testing.T) {
	lang, ok := Get("es-ar")
	if !ok {
		t.Fatal("expected es-ar alias to resolve")
	}
	if lang.Code != "es-latam" {
		t.Errorf("expected alias to resolve to es-latam, got %s", lang.Code)
	}
}

func TestGetUnknown(t *testing.T) {
	if _, ok := Get("xx-unknown"); ok {
		t.Fatal("expected unknown code to fail")
	}
}

func TestRequireReturnsTypedError(t *testing.T) {
	_, err := Require("xx-unknown", "TestRequireReturnsTypedError")
	if err == nil {
		t.Fatal("expected error for unknown code")
	}
	if _, ok := err.(*UnsupportedLanguageError); !ok {
		t.Fatalf("expected *UnsupportedLanguageError, got %T", err)
	}
}

func TestBaseCode(t *testing.T) {
	cases := map[string]string{
		"es-latam": "es",
		"en":       "en",
		"pt-br":    "pt",
	}
	for in, want := range cases {
		if got := BaseCode(in); got != want {
			t.Errorf("BaseCode(%q) = %q, want %q", in, got, want)
		}
	}
}
