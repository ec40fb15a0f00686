package normalize

import (
	"reflect"
	"testing"
)

func TestSplitArtists(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "Radiohead", []string{"Radiohead"}},
		{"comma", "Brian Eno, David Byrne", []string{"Brian Eno", "David Byrne"}},
		{"ampersand", "Simon & Garfunkel", []string{"Simon", "Garfunkel"}},
		{"feat", "Massive Attack feat. Tracey Thorn", []string{"Massive Attack", "Tracey Thorn"}},
		{"ft", "Gorillaz ft. De La Soul", []string{"Gorillaz", "De La Soul"}},
		{"slash", "Queen / David Bowie", []string{"Queen", "David Bowie"}},
		{"parenthesized feat untouched", "Daft Punk (feat. Pharrell Williams)", []string{"Daft Punk (feat. Pharrell Williams)"}},
		{"mixed", "A, B & C", []string{"A", "B", "C"}},
		{"empty segments dropped", "Radiohead, ", []string{"Radiohead"}},
		{"whitespace only", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitArtists(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArtists(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Beatles", "THE BEATLES"},
		{"the  beatles ", "THE BEATLES"},
		{"Sigur Rós", "SIGUR ROS"},
		{"AC/DC", "AC DC"},
		{"Guns N' Roses", "GUNS N ROSES"},
		{"R.E.M.", "REM"},
		{"Mötley Crüe", "MOTLEY CRUE"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := CanonicalKey(tt.in); got != tt.want {
			t.Errorf("CanonicalKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalKeyIdempotent(t *testing.T) {
	inputs := []string{"The Beatles", "Sigur Rós", "AC/DC", "Météo Noir & Friends", "  weird   spacing  "}
	for _, in := range inputs {
		once := CanonicalKey(in)
		twice := CanonicalKey(once)
		if once != twice {
			t.Errorf("CanonicalKey not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestFixPrefixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Beatles, The", "The Beatles"},
		{"Perfect Circle, A", "A Perfect Circle"},
		{"The Beatles", "The Beatles"},
		{"Earth, Wind & Fire", "Earth, Wind & Fire"},
		{"Tyler, The Creator", "Tyler, The Creator"},
	}
	for _, tt := range tests {
		if got := FixPrefixes(tt.in); got != tt.want {
			t.Errorf("FixPrefixes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Wish You Were Here (Remastered)")
	want := []string{"WISH", "YOU", "WERE", "HERE", "REMASTERED"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}
