package facematch_test

import (
	"testing"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří", "Jiri"},
		{"Žofie Čermáková", "Zofie Cermakova"},
		{"François", "Francois"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := facematch.RemoveDiacritics(tc.input); got != tc.want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizePersonName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří Novák", "jiri novak"},
		{"Anne-Marie", "anne marie"},
		{"BOB", "bob"},
		{"Žofie-Anna", "zofie anna"},
	}

	for _, tc := range tests {
		if got := facematch.NormalizePersonName(tc.input); got != tc.want {
			t.Errorf("NormalizePersonName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
