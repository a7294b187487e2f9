package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/internal/testgen"
	"github.com/tankobonapp/tankobon/pkg/models"
)

func comicWithNumber(id int, number string) *models.Comic {
	return &models.Comic{ID: id, Number: testgen.StringPtr(number)}
}

func comicWithTitle(id int, title string) *models.Comic {
	return &models.Comic{ID: id, Title: testgen.StringPtr(title)}
}

func issueWithNumber(pos int, number string) *Issue {
	return &Issue{Position: pos, Number: testgen.StringPtr(number)}
}

func issueWithTitle(pos int, title string) *Issue {
	return &Issue{Position: pos, Title: testgen.StringPtr(title)}
}

func TestAlignExactNumbers(t *testing.T) {
	t.Parallel()

	comics := []*models.Comic{
		comicWithNumber(1, "1"),
		comicWithNumber(2, "2"),
		comicWithNumber(3, "3"),
	}
	issues := []*Issue{
		issueWithNumber(0, "1"),
		issueWithNumber(1, "2"),
		issueWithNumber(2, "3"),
	}

	a := Align(comics, issues, nil)
	require.Len(t, a.Pairs, 3)
	for i, pair := range a.Pairs {
		assert.True(t, pair.matched(), "pair %d should be matched", i)
	}
	assert.Len(t, a.Matched(), 3)
}

// Owning issues 1, 2, and 4 of a four-issue run must pair 4 with 4 and
// leave 3 remote-only, instead of sliding 4 onto 3 positionally.
func TestAlignGapInLocalCollection(t *testing.T) {
	t.Parallel()

	comics := []*models.Comic{
		comicWithNumber(1, "1"),
		comicWithNumber(2, "2"),
		comicWithNumber(4, "4"),
	}
	issues := []*Issue{
		issueWithNumber(0, "1"),
		issueWithNumber(1, "2"),
		issueWithNumber(2, "3"),
		issueWithNumber(3, "4"),
	}

	a := Align(comics, issues, nil)
	require.Len(t, a.Pairs, 4)

	assert.True(t, a.Pairs[0].matched())
	assert.True(t, a.Pairs[1].matched())

	// Issue 3 has no local counterpart.
	assert.Nil(t, a.Pairs[2].Comic)
	require.NotNil(t, a.Pairs[2].Issue)
	assert.Equal(t, "3", *a.Pairs[2].Issue.Number)

	require.True(t, a.Pairs[3].matched())
	assert.Equal(t, 4, a.Pairs[3].Comic.ID)
	assert.Equal(t, "4", *a.Pairs[3].Issue.Number)
}

func TestAlignNumberNormalization(t *testing.T) {
	t.Parallel()

	comics := []*models.Comic{comicWithNumber(1, "#007")}
	issues := []*Issue{issueWithNumber(0, "7")}

	a := Align(comics, issues, nil)
	require.Len(t, a.Pairs, 1)
	assert.True(t, a.Pairs[0].matched())
}

func TestAlignFuzzyTitles(t *testing.T) {
	t.Parallel()

	comics := []*models.Comic{
		comicWithTitle(1, "Días de Futuro Pasado"),
		comicWithTitle(2, "The Dark Phoenix Saga!"),
	}
	issues := []*Issue{
		issueWithTitle(0, "Dias de futuro pasado"),
		issueWithTitle(1, "Dark Phoenix Saga"),
	}

	a := Align(comics, issues, nil)
	require.Len(t, a.Pairs, 3)
	assert.True(t, a.Pairs[0].matched())

	// "The" prefix pushes the distance past the threshold for the second
	// title, so the issue and the comic land in separate unmatched rows.
	assert.Nil(t, a.Pairs[1].Comic)
	assert.Nil(t, a.Pairs[2].Issue)
	assert.Len(t, a.Matched(), 1)
}

func TestAlignCustomComparator(t *testing.T) {
	t.Parallel()

	always := func(local, remote string) bool { return true }

	comics := []*models.Comic{comicWithTitle(1, "Anything")}
	issues := []*Issue{issueWithTitle(0, "Whatever")}

	a := Align(comics, issues, always)
	require.Len(t, a.Pairs, 1)
	assert.True(t, a.Pairs[0].matched())
}

func TestAlignExtraLocals(t *testing.T) {
	t.Parallel()

	comics := []*models.Comic{
		comicWithNumber(1, "1"),
		comicWithNumber(2, "2"),
	}
	issues := []*Issue{issueWithNumber(0, "1")}

	a := Align(comics, issues, nil)
	require.Len(t, a.Pairs, 2)
	assert.True(t, a.Pairs[0].matched())
	assert.Nil(t, a.Pairs[1].Issue)
	assert.Equal(t, 2, a.Pairs[1].Comic.ID)
}

func TestEditOperations(t *testing.T) {
	t.Parallel()

	t.Run("DropLocal", func(t *testing.T) {
		t.Parallel()

		a := Align(
			[]*models.Comic{comicWithNumber(1, "1")},
			[]*Issue{issueWithNumber(0, "1")},
			nil,
		)
		require.NoError(t, a.DropLocal(0))
		require.Len(t, a.Pairs, 1)
		assert.Nil(t, a.Pairs[0].Comic)
		assert.NotNil(t, a.Pairs[0].Issue)
		assert.Empty(t, a.Matched())
	})

	t.Run("DropRemote removes empty rows", func(t *testing.T) {
		t.Parallel()

		a := Align(
			[]*models.Comic{comicWithNumber(1, "1")},
			[]*Issue{issueWithNumber(0, "1"), issueWithNumber(1, "2")},
			nil,
		)
		require.Len(t, a.Pairs, 2)
		require.NoError(t, a.DropRemote(1))
		assert.Len(t, a.Pairs, 1)
	})

	t.Run("PairManually", func(t *testing.T) {
		t.Parallel()

		a := Align(
			[]*models.Comic{comicWithTitle(1, "Totally Different")},
			[]*Issue{issueWithTitle(0, "Unrelated Issue")},
			nil,
		)
		// The automatic walk leaves both unmatched, in separate rows.
		require.Len(t, a.Pairs, 2)

		comicIdx, issueIdx := -1, -1
		for i, p := range a.Pairs {
			if p.Comic != nil && p.Issue == nil {
				comicIdx = i
			}
			if p.Issue != nil && p.Comic == nil {
				issueIdx = i
			}
		}
		require.NoError(t, a.PairManually(comicIdx, issueIdx))
		require.Len(t, a.Pairs, 1)
		assert.True(t, a.Pairs[0].matched())
	})

	t.Run("PairManually rejects matched rows", func(t *testing.T) {
		t.Parallel()

		a := Align(
			[]*models.Comic{comicWithNumber(1, "1")},
			[]*Issue{issueWithNumber(0, "1")},
			nil,
		)
		assert.Error(t, a.PairManually(0, 0))
	})

	t.Run("MoveLocal swaps rows", func(t *testing.T) {
		t.Parallel()

		a := Align(
			[]*models.Comic{comicWithNumber(1, "1"), comicWithNumber(2, "2")},
			[]*Issue{issueWithNumber(0, "1"), issueWithNumber(1, "2")},
			nil,
		)
		require.NoError(t, a.MoveLocal(0, 1))
		assert.Equal(t, 2, a.Pairs[0].Comic.ID)
		assert.Equal(t, 1, a.Pairs[1].Comic.ID)
	})

	t.Run("Realign recomputes pairings over the current order", func(t *testing.T) {
		t.Parallel()

		a := Align(
			[]*models.Comic{comicWithNumber(1, "1"), comicWithNumber(2, "2")},
			[]*Issue{issueWithNumber(0, "1"), issueWithNumber(1, "2")},
			nil,
		)
		require.NoError(t, a.MoveLocal(0, 1))
		a.Realign()

		// The swap survives the rerun: comic 2 now leads, so it pairs
		// with issue "2" and the displaced rows fall out unmatched.
		require.Len(t, a.Pairs, 3)
		assert.Nil(t, a.Pairs[0].Comic)
		require.NotNil(t, a.Pairs[0].Issue)
		assert.Equal(t, "1", *a.Pairs[0].Issue.Number)
		require.True(t, a.Pairs[1].matched())
		assert.Equal(t, 2, a.Pairs[1].Comic.ID)
		assert.Equal(t, 1, a.Pairs[2].Comic.ID)
		assert.Nil(t, a.Pairs[2].Issue)
	})
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		expected string
	}{
		{"  The Dark Phoenix Saga!  ", "the dark phoenix saga"},
		{"Días de Futuro Pasado", "dias de futuro pasado"},
		{"ＦＵＬＬ　ＷＩＤＴＨ", "full width"},
		{"", ""},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, normalizeTitle(test.in), "input %q", test.in)
	}
}

func TestNormalizeNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		expected string
	}{
		{"#007", "7"},
		{" 7 ", "7"},
		{"0.5", "0.5"},
		{"0", "0"},
		{"Annual 1", "annual 1"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, normalizeNumber(test.in), "input %q", test.in)
	}
}
