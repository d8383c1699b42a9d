package text

import (
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"
)

func TestNewHyphenatorLanguageLookup(t *testing.T) {
	log := zaptest.NewLogger(t)

	if h := NewHyphenator(language.English, log); h == nil {
		t.Error("english must resolve through the language map to en-us")
	}
	if h := NewHyphenator(language.AmericanEnglish, log); h == nil {
		t.Error("en-us must resolve directly")
	}
	if h := NewHyphenator(language.MustParse("tlh"), log); h != nil {
		t.Error("klingon should have no dictionary")
	}
}

func TestWordBreaksAreInsideWord(t *testing.T) {
	log := zaptest.NewLogger(t)
	h := NewHyphenator(language.English, log)
	if h == nil {
		t.Fatal("no english dictionary")
	}

	for _, word := range []string{"pagination", "remarkable", "hyphenation"} {
		breaks := h.WordBreaks(word)
		if len(breaks) == 0 {
			t.Errorf("no breaks for %q", word)
			continue
		}
		n := len([]rune(word))
		last := -1
		for _, p := range breaks {
			if p <= 0 || p >= n {
				t.Errorf("break %d outside word %q", p, word)
			}
			if p <= last {
				t.Errorf("breaks for %q not strictly increasing: %v", word, breaks)
			}
			last = p
		}
	}
}

func TestWordBreaksShortWords(t *testing.T) {
	log := zaptest.NewLogger(t)
	h := NewHyphenator(language.English, log)
	if h == nil {
		t.Fatal("no english dictionary")
	}

	if breaks := h.WordBreaks("at"); len(breaks) != 0 {
		t.Errorf("two letter word got breaks: %v", breaks)
	}
}
