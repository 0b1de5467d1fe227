package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLedger(t *testing.T) {
	body := `- Fact one. [^1]
- Fact two. [^2]

[^1]: https://example.com/a
[^2]: https://example.com/b
[^2]: https://example.com/ignored-duplicate
not a definition [^3]: https://example.com/c`

	ledger := ParseLedger(body)

	require.Len(t, ledger, 2)
	assert.Equal(t, "https://example.com/a", ledger[1])
	assert.Equal(t, "https://example.com/b", ledger[2])
}

func TestLedgerNextIndex(t *testing.T) {
	assert.Equal(t, 1, Ledger{}.NextIndex())
	assert.Equal(t, 8, Ledger{3: "a", 7: "b"}.NextIndex())
}

func TestLedgerIndexFor(t *testing.T) {
	ledger := Ledger{1: "https://a.com", 2: "https://b.com", 3: "https://a.com"}

	idx, ok := ledger.IndexFor("https://b.com")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	// Lowest index wins when a URL was defined more than once.
	idx, ok = ledger.IndexFor("https://a.com")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = ledger.IndexFor("https://missing.com")
	assert.False(t, ok)
}

func TestMarkerIndexes(t *testing.T) {
	assert.Equal(t, []int{1, 12}, MarkerIndexes("- Fact. [^1][^12]"))
	assert.Empty(t, MarkerIndexes("- Fact with no markers."))
}

func TestEndsWithMarker(t *testing.T) {
	assert.True(t, EndsWithMarker("- Fact. [^3]"))
	assert.True(t, EndsWithMarker("- Fact. [^3]  "))
	assert.False(t, EndsWithMarker("- Fact. [^3] tail"))
}

func TestSplitMentionsSuffix(t *testing.T) {
	core, suffix := SplitMentionsSuffix("- Fact one. [^1] _(mentions: 3 sources)_")
	assert.Equal(t, "- Fact one. [^1]", core)
	assert.Equal(t, " _(mentions: 3 sources)_", suffix)

	core, suffix = SplitMentionsSuffix("- Fact one. [^1]  ")
	assert.Equal(t, "- Fact one. [^1]", core)
	assert.Empty(t, suffix)
}

func TestWithSourceFootnotes(t *testing.T) {
	got := WithSourceFootnotes("- Fact one.\n- Fact two.", []string{"https://a.com", "https://b.com", "https://a.com"})

	assert.Equal(t, "- Fact one.\n- Fact two. [^1][^2]\n\n[^1]: https://a.com\n[^2]: https://b.com", got)
}

func TestWithSourceFootnotesNoSources(t *testing.T) {
	assert.Equal(t, "- Fact one.", WithSourceFootnotes("- Fact one.\n", nil))
}

func TestWithSourceFootnotesEmptyBody(t *testing.T) {
	got := WithSourceFootnotes("", []string{"https://a.com"})

	assert.Equal(t, "[^1]\n\n[^1]: https://a.com", got)
}

func TestAppendSourceFootnotesContinuesLedger(t *testing.T) {
	ledger := Ledger{1: "https://a.com"}

	got := AppendSourceFootnotes("- New fact.", []string{"https://b.com"}, ledger)

	assert.Equal(t, "- New fact. [^2]\n\n[^2]: https://b.com", got)
	assert.Equal(t, "https://b.com", ledger[2])
}

func TestAppendSourceFootnotesReusesIndex(t *testing.T) {
	ledger := Ledger{1: "https://a.com", 2: "https://b.com"}

	// Already-defined URL: marker only, no duplicate definition.
	got := AppendSourceFootnotes("- Again.", []string{"https://a.com"}, ledger)

	assert.Equal(t, "- Again. [^1]", got)
	require.Len(t, ledger, 2)
}

func TestAppendSourceFootnotesMixedSources(t *testing.T) {
	ledger := Ledger{1: "https://a.com"}

	got := AppendSourceFootnotes("- Fact.", []string{"https://a.com", "https://c.com"}, ledger)

	assert.Equal(t, "- Fact. [^1][^2]\n\n[^2]: https://c.com", got)
}
