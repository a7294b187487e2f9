// Package matcher aligns the comics of a folder against an ordered issue
// list fetched from a catalog, pairing each file with the issue it most
// likely is. The automatic alignment is a proposal; callers adjust it with
// the edit operations and then commit it as one atomic metadata batch.
package matcher

import (
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/models"
)

// Issue is one entry of a remote issue list, in publication order.
type Issue struct {
	Position int     `json:"position"`
	Number   *string `json:"number,omitempty"`
	Title    *string `json:"title,omitempty"`
	Series   *string `json:"series,omitempty"`
	Volume   *string `json:"volume,omitempty"`
	StoryArc *string `json:"story_arc,omitempty"`

	Publisher   *string                `json:"publisher,omitempty"`
	ReleaseDate *time.Time             `json:"release_date,omitempty"`
	Synopsis    *string                `json:"synopsis,omitempty"`
	Tags        *string                `json:"tags,omitempty"`
	Creators    []*models.ComicCreator `json:"creators,omitempty"`
}

// Pair is one row of an alignment. A nil Issue means the comic has no
// counterpart in the list; a nil Comic means the issue is missing locally.
type Pair struct {
	Comic *models.Comic `json:"comic,omitempty"`
	Issue *Issue        `json:"issue,omitempty"`
}

func (p *Pair) matched() bool {
	return p.Comic != nil && p.Issue != nil
}

// Alignment is an editable pairing of local comics with remote issues.
type Alignment struct {
	Pairs []*Pair `json:"pairs"`

	comparator TitleComparator
}

// TitleComparator decides whether two titles refer to the same issue.
// Pluggable so catalogs with different title conventions can tune it.
type TitleComparator func(local, remote string) bool

// FuzzyTitleComparator matches titles whose Levenshtein distance after
// normalization stays within about 20% of the pattern length, capped at 3.
func FuzzyTitleComparator(local, remote string) bool {
	a, b := normalizeTitle(local), normalizeTitle(remote)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return fuzzy.LevenshteinDistance(a, b) <= distanceThreshold(len(a))
}

// distanceThreshold calculates acceptable edit distance (~20% of length).
func distanceThreshold(n int) int {
	th := n / 5
	if th < 1 {
		return 1
	}
	if th > 3 {
		return 3
	}
	return th
}

// Align pairs comics with issues using a greedy two-pointer walk over both
// sequences. Comics must arrive in reading order, issues in publication
// order. An exact issue-number match is decisive; otherwise titles break the
// tie. On a mismatch the remote pointer advances, which absorbs gaps in the
// local collection (owning 1,2,4 of a 4-issue run pairs 4 with 4, not 3).
func Align(comicList []*models.Comic, issues []*Issue, cmp TitleComparator) *Alignment {
	if cmp == nil {
		cmp = FuzzyTitleComparator
	}

	a := &Alignment{comparator: cmp}

	i, j := 0, 0
	for i < len(comicList) && j < len(issues) {
		comic := comicList[i]
		issue := issues[j]

		if matches(comic, issue, cmp) {
			a.Pairs = append(a.Pairs, &Pair{Comic: comic, Issue: issue})
			i++
			j++
			continue
		}

		// Local numbers can run ahead of the remote pointer; if this comic
		// matches a later issue by number, the skipped issues are simply
		// missing locally.
		a.Pairs = append(a.Pairs, &Pair{Issue: issue})
		j++
	}

	for ; i < len(comicList); i++ {
		a.Pairs = append(a.Pairs, &Pair{Comic: comicList[i]})
	}
	for ; j < len(issues); j++ {
		a.Pairs = append(a.Pairs, &Pair{Issue: issues[j]})
	}

	return a
}

// matches reports whether the comic and the issue are the same release. A
// shared issue number decides outright; number disagreement vetoes; with no
// numbers on one side, titles decide.
func matches(comic *models.Comic, issue *Issue, cmp TitleComparator) bool {
	if comic.Number != nil && issue.Number != nil {
		return normalizeNumber(*comic.Number) == normalizeNumber(*issue.Number)
	}
	if comic.Title != nil && issue.Title != nil {
		return cmp(*comic.Title, *issue.Title)
	}
	// Nothing to compare on; trust the positional walk.
	return true
}

// Matched returns the pairs that will receive metadata on commit.
func (a *Alignment) Matched() []*Pair {
	matched := []*Pair{}
	for _, p := range a.Pairs {
		if p.matched() {
			matched = append(matched, p)
		}
	}
	return matched
}

// DropLocal detaches the comic at pair index i, leaving the issue
// unmatched. Rows that end up empty disappear.
func (a *Alignment) DropLocal(i int) error {
	if i < 0 || i >= len(a.Pairs) || a.Pairs[i].Comic == nil {
		return errors.Errorf("no local comic at alignment index %d", i)
	}
	a.Pairs[i].Comic = nil
	a.compact()
	return nil
}

// DropRemote detaches the issue at pair index i.
func (a *Alignment) DropRemote(i int) error {
	if i < 0 || i >= len(a.Pairs) || a.Pairs[i].Issue == nil {
		return errors.Errorf("no remote issue at alignment index %d", i)
	}
	a.Pairs[i].Issue = nil
	a.compact()
	return nil
}

// PairManually joins the unmatched comic at index comicIdx with the
// unmatched issue at index issueIdx, overriding the automatic walk.
func (a *Alignment) PairManually(comicIdx, issueIdx int) error {
	if comicIdx < 0 || comicIdx >= len(a.Pairs) || a.Pairs[comicIdx].Comic == nil || a.Pairs[comicIdx].Issue != nil {
		return errors.Errorf("no unmatched comic at alignment index %d", comicIdx)
	}
	if issueIdx < 0 || issueIdx >= len(a.Pairs) || a.Pairs[issueIdx].Issue == nil || a.Pairs[issueIdx].Comic != nil {
		return errors.Errorf("no unmatched issue at alignment index %d", issueIdx)
	}

	a.Pairs[issueIdx].Comic = a.Pairs[comicIdx].Comic
	a.Pairs[comicIdx].Comic = nil
	a.compact()
	return nil
}

// MoveLocal shifts the comic at index from onto the row at index to,
// displacing whatever comic was there into the vacated row.
func (a *Alignment) MoveLocal(from, to int) error {
	if from < 0 || from >= len(a.Pairs) || a.Pairs[from].Comic == nil {
		return errors.Errorf("no local comic at alignment index %d", from)
	}
	if to < 0 || to >= len(a.Pairs) {
		return errors.Errorf("alignment index %d out of range", to)
	}

	a.Pairs[from].Comic, a.Pairs[to].Comic = a.Pairs[to].Comic, a.Pairs[from].Comic
	a.compact()
	return nil
}

// Realign re-runs the automatic walk over the comics and issues currently
// present. Dropped rows stay dropped and reordered comics keep their new
// sequence; only the pairings themselves are recomputed.
func (a *Alignment) Realign() {
	comicList := []*models.Comic{}
	issues := []*Issue{}
	for _, p := range a.Pairs {
		if p.Comic != nil {
			comicList = append(comicList, p.Comic)
		}
		if p.Issue != nil {
			issues = append(issues, p.Issue)
		}
	}
	fresh := Align(comicList, issues, a.comparator)
	a.Pairs = fresh.Pairs
}

func (a *Alignment) compact() {
	pairs := a.Pairs[:0]
	for _, p := range a.Pairs {
		if p.Comic != nil || p.Issue != nil {
			pairs = append(pairs, p)
		}
	}
	a.Pairs = pairs
}
