package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToBulletsKeepsExistingBullets(t *testing.T) {
	got := NormalizeToBullets("- Fact one. [^1]\n* Fact two.\n+ Fact three.")

	assert.Equal(t, "- Fact one. [^1]\n- Fact two.\n- Fact three.", got)
}

func TestNormalizeToBulletsNumberedLines(t *testing.T) {
	got := NormalizeToBullets("1. First finding.\n2) Second finding.")

	assert.Equal(t, "- First finding.\n- Second finding.", got)
}

func TestNormalizeToBulletsDropsFootnoteDefinitions(t *testing.T) {
	got := NormalizeToBullets("- Fact one. [^1]\n\n[^1]: https://example.com/a")

	assert.Equal(t, "- Fact one. [^1]", got)
}

func TestNormalizeToBulletsSplitsProseIntoSentences(t *testing.T) {
	got := NormalizeToBullets("## Heading\nAlpha happened. Beta followed in 2024. [^1] marks stay.")

	assert.Equal(t, "- Heading\n- Alpha happened.\n- Beta followed in 2024.\n- [^1] marks stay.", got)
}

func TestNormalizeToBulletsDoesNotSplitOnLowercase(t *testing.T) {
	got := NormalizeToBullets("The v2.1 release shipped. details follow later.")

	assert.Equal(t, "- The v2.1 release shipped. details follow later.", got)
}

func TestNormalizeToBulletsDeduplicates(t *testing.T) {
	got := NormalizeToBullets("- Same fact.\n- Same fact.\n- Other fact.")

	assert.Equal(t, "- Same fact.\n- Other fact.", got)
}

func TestNormalizeToBulletsEmpty(t *testing.T) {
	assert.Empty(t, NormalizeToBullets(""))
	assert.Empty(t, NormalizeToBullets("   \n\n  "))
	assert.Empty(t, NormalizeToBullets("[^1]: https://example.com/a"))
}

func TestNormalizeForMatch(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bullet prefix", "- Trial enrolled 40 patients.", "trial enrolled 40 patients."},
		{"numbered prefix", "3) Trial enrolled 40 patients.", "trial enrolled 40 patients."},
		{"footnote markers", "- Trial enrolled 40 patients. [^1][^4]", "trial enrolled 40 patients."},
		{"mentions suffix", "- Trial enrolled 40 patients. _(mentions: 3 sources)_", "trial enrolled 40 patients."},
		{"whitespace and case", "-   Trial  Enrolled   40 Patients.", "trial enrolled 40 patients."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeForMatch(tc.in))
		})
	}
}

func TestNormalizeForMatchEquatesBulletShapes(t *testing.T) {
	a := NormalizeForMatch("- Key result announced. [^2] _(mentions: 2 sources)_")
	b := NormalizeForMatch("Key result announced.")

	assert.Equal(t, b, a)
}
