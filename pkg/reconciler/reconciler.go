// Package reconciler diffs the stored library snapshot against the current
// on-disk state and classifies every difference as a creation, deletion,
// move, or modification. It only decides what changed; applying those
// decisions is the updater's job.
package reconciler

import (
	"fmt"

	"github.com/tankobonapp/tankobon/pkg/crawler"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type ChangeKind string

const (
	ChangeKindCreate ChangeKind = "create"
	ChangeKindDelete ChangeKind = "delete"
	ChangeKindMove   ChangeKind = "move"
	ChangeKindModify ChangeKind = "modify"
)

// Change pairs a stored comic with a disk entry. Creations have no Comic;
// deletions have no Entry.
type Change struct {
	Kind  ChangeKind
	Comic *models.Comic
	Entry *crawler.Entry

	// Duplicate marks a creation whose content already exists elsewhere in
	// the library. The copy still gets its own row; the updater surfaces a
	// warning so the user can deduplicate on disk.
	Duplicate bool
}

// ChangeSet is a complete partition of the differences between the stored
// snapshot and the disk: every stored comic and every disk file is
// accounted for by exactly one change or by the unchanged count.
type ChangeSet struct {
	Creations     []*Change
	Deletions     []*Change
	Moves         []*Change
	Modifications []*Change
	Unchanged     int
	Folders       []string
	Warnings      []string
}

// Empty reports whether the snapshot already matches the disk.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Creations) == 0 && len(cs.Deletions) == 0 &&
		len(cs.Moves) == 0 && len(cs.Modifications) == 0
}

// Total counts the units of work the updater will apply.
func (cs *ChangeSet) Total() int {
	return len(cs.Creations) + len(cs.Deletions) + len(cs.Moves) + len(cs.Modifications)
}

// Reconcile computes the ChangeSet between the stored comics of a library
// and a crawl of its root.
//
// A file whose path, size, and mod time all match its stored row is
// unchanged without rehashing; everything else is fingerprinted. Pairing
// prefers path equality over fingerprint equality, so replacing a file's
// content in place is a modification even when the old content reappears
// elsewhere. Remaining rows and files pair up by fingerprint as moves, one
// to one, so duplicate copies of the same content stay distinct; copies
// beyond the pairing become creations flagged as duplicates.
func Reconcile(stored []*models.Comic, crawl *crawler.Result) *ChangeSet {
	cs := &ChangeSet{
		Folders:  crawl.Folders,
		Warnings: append([]string{}, crawl.Warnings...),
	}

	storedByPath := make(map[string]*models.Comic, len(stored))
	for _, comic := range stored {
		storedByPath[comic.Path] = comic
	}

	// First pass: settle unchanged files cheaply and fingerprint the rest.
	pendingEntries := []*crawler.Entry{}
	entryFingerprints := map[*crawler.Entry]string{}
	matched := map[*models.Comic]bool{}

	for _, entry := range crawl.Entries {
		comic := storedByPath[entry.RelPath]
		if comic != nil && comic.FilesizeBytes == entry.Size && comic.FileModTime.Equal(entry.ModTime) && comic.ScanError == nil {
			cs.Unchanged++
			matched[comic] = true
			continue
		}

		fp, err := entry.Fingerprint()
		if err != nil {
			cs.Warnings = append(cs.Warnings, fmt.Sprintf("fingerprint %s: %v", entry.RelPath, err))
			if comic != nil {
				// Unreadable now; leave the stored row alone rather than
				// guessing.
				matched[comic] = true
			}
			continue
		}
		entryFingerprints[entry] = fp
		pendingEntries = append(pendingEntries, entry)
	}

	// Second pass: path equality wins. A pending entry whose path matches a
	// stored row is the same comic with new content (or scan-error retry
	// with identical content).
	stillPending := pendingEntries[:0]
	for _, entry := range pendingEntries {
		comic := storedByPath[entry.RelPath]
		if comic == nil || matched[comic] {
			stillPending = append(stillPending, entry)
			continue
		}
		matched[comic] = true
		if comic.Fingerprint == entryFingerprints[entry] {
			if comic.ScanError != nil {
				// Retry the failed scan.
				cs.Modifications = append(cs.Modifications, &Change{Kind: ChangeKindModify, Comic: comic, Entry: entry})
			} else {
				cs.Unchanged++
			}
			continue
		}
		cs.Modifications = append(cs.Modifications, &Change{Kind: ChangeKindModify, Comic: comic, Entry: entry})
	}
	pendingEntries = stillPending

	// Third pass: pair the leftovers by fingerprint, one row to one file,
	// in deterministic path order on both sides.
	unmatchedByFingerprint := map[string][]*models.Comic{}
	for _, comic := range stored {
		if !matched[comic] {
			unmatchedByFingerprint[comic.Fingerprint] = append(unmatchedByFingerprint[comic.Fingerprint], comic)
		}
	}

	knownFingerprints := map[string]bool{}
	for _, comic := range stored {
		if comic.Fingerprint != "" {
			knownFingerprints[comic.Fingerprint] = true
		}
	}

	for _, entry := range pendingEntries {
		fp := entryFingerprints[entry]
		candidates := unmatchedByFingerprint[fp]
		if len(candidates) == 0 {
			cs.Creations = append(cs.Creations, &Change{
				Kind:      ChangeKindCreate,
				Entry:     entry,
				Duplicate: knownFingerprints[fp],
			})
			knownFingerprints[fp] = true
			continue
		}
		comic := candidates[0]
		unmatchedByFingerprint[fp] = candidates[1:]
		matched[comic] = true
		cs.Moves = append(cs.Moves, &Change{Kind: ChangeKindMove, Comic: comic, Entry: entry})
	}

	for _, comic := range stored {
		if !matched[comic] {
			cs.Deletions = append(cs.Deletions, &Change{Kind: ChangeKindDelete, Comic: comic})
		}
	}

	return cs
}
