package matcher

import "time"

type AlignPayload struct {
	LibraryID *int    `json:"library_id,omitempty"`
	FolderID  *int    `json:"folder_id,omitempty"`
	Series    *string `json:"series,omitempty"`

	Issues []*Issue     `json:"issues" validate:"required,min=1"`
	Edits  []EditAction `json:"edits,omitempty" validate:"omitempty,dive"`
}

// EditAction is one manual correction applied on top of the automatic
// alignment, in order.
type EditAction struct {
	Op string `json:"op" validate:"required,oneof=drop_local drop_remote pair move realign"`

	Index *int `json:"index,omitempty"`
	From  *int `json:"from,omitempty"`
	To    *int `json:"to,omitempty"`

	ComicIndex *int `json:"comic_index,omitempty"`
	IssueIndex *int `json:"issue_index,omitempty"`
}

type CommitPayload struct {
	Pairs []CommitPair `json:"pairs" validate:"required,min=1,dive"`
}

// CommitPair echoes one matched row back from a prior align response. The
// expected_updated_at guard rejects the batch if the comic changed in
// between.
type CommitPair struct {
	ComicID           int       `json:"comic_id" validate:"required"`
	ExpectedUpdatedAt time.Time `json:"expected_updated_at" validate:"required"`
	Issue             *Issue    `json:"issue" validate:"required"`
}
