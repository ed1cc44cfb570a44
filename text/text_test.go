package text

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestBuckwalterRoundTrip(t *testing.T) {
	bw := ">anA Aln~ahAridapu"
	ar := BuckwalterToArabic(bw)
	if ar == bw {
		t.Fatalf("BuckwalterToArabic did not transliterate %q", bw)
	}
	if got := ArabicToBuckwalter(ar); got != bw {
		t.Errorf("ArabicToBuckwalter(%q) = %q, want %q", ar, got, bw)
	}
}

func TestNormalizeArabicDropsTatweel(t *testing.T) {
	if got := NormalizeArabic("كـتـاب"); got != "كتاب" {
		t.Errorf("NormalizeArabic = %q, want %q", got, "كتاب")
	}
}

func TestBuckwalterToPhonemes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{">anA", "' a n aa"},
		{"kunoto", "k u n t"},
		{"EalaY", "E a l aa"},
		{"sanapF", "s a n a t a n"},
		{">anA Aln~ahAridapu", "' a n aa _ n n a h aa r i d a t u"},
		{"Alobayotu", "' a l b a y t u"},
		{"kitAbAF", "k i t aa b a n"},
		{"yaquwlu", "y a q uu l u"},
		{"kabiyr, jid~AF.", "k a b ii r _comma_ j i d d a n _period_"},
	}
	for _, tt := range tests {
		got, err := BuckwalterToPhonemes(tt.in)
		if err != nil {
			t.Errorf("BuckwalterToPhonemes(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BuckwalterToPhonemes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuckwalterToPhonemesErrors(t *testing.T) {
	if _, err := BuckwalterToPhonemes("ka7"); !errors.Is(err, ErrUnsupportedChar) {
		t.Errorf("err = %v, want ErrUnsupportedChar", err)
	}
	if _, err := BuckwalterToPhonemes("   "); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestArabicToPhonemes(t *testing.T) {
	got, err := ArabicToPhonemes(BuckwalterToArabic("kunoto"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "k u n t" {
		t.Errorf("ArabicToPhonemes = %q, want %q", got, "k u n t")
	}
}

func TestPhonemesToTokens(t *testing.T) {
	got := PhonemesToTokens("b  a ? _")
	want := []string{"b", "a", "_question_", "_", EOSToken}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PhonemesToTokens = %v, want %v", got, want)
	}
}

func TestTokensToIDs(t *testing.T) {
	ids, err := TokensToIDs([]string{PadToken, "b", "aa", EOSToken})
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] != 0 {
		t.Errorf("pad id = %d, want 0", ids[0])
	}
	back := DefaultSymbols.IDsToTokens(ids)
	if !reflect.DeepEqual(back, []string{PadToken, "b", "aa", EOSToken}) {
		t.Errorf("IDsToTokens = %v", back)
	}
	if _, err := TokensToIDs([]string{"@"}); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("err = %v, want ErrUnknownToken", err)
	}
}

func TestBuckwalterToTokensCoveredBySymbols(t *testing.T) {
	tokens, err := BuckwalterToTokens(">anA Aln~ahAridapu Einody wAHidN waxamosyna sanapF")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := TokensToIDs(tokens); err != nil {
		t.Errorf("TokensToIDs: %v", err)
	}
}

func TestLoadSymbolTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	if err := os.WriteFile(path, []byte("_pad_ 0\na 1\n\nb 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := LoadSymbolTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", st.Len())
	}
	if id, ok := st.ID("b"); !ok || id != 2 {
		t.Errorf("ID(b) = %d, %v", id, ok)
	}
}

func TestStripTimestamps(t *testing.T) {
	tests := map[string]string{
		"12:05 hello":   "hello",
		"1:2\thi":       "hi",
		"no stamp":      "no stamp",
		"text 12:05 ok": "text 12:05 ok",
	}
	for in, want := range tests {
		if got := StripTimestamps(in); got != want {
			t.Errorf("StripTimestamps(%q) = %q, want %q", in, got, want)
		}
	}
	if got := StripTimestampsAll("0:01 a\nb\n0:03 c\n"); got != "a\nb\nc\n" {
		t.Errorf("StripTimestampsAll = %q", got)
	}
}
