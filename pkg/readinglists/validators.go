package readinglists

type CreateReadingListPayload struct {
	LibraryID int    `json:"library_id" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
	IsOrdered bool   `json:"is_ordered,omitempty"`
}

type ListReadingListsQuery struct {
	Limit     int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID *int `query:"library_id" json:"library_id,omitempty"`
}

type UpdateReadingListPayload struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=100"`
	IsOrdered *bool   `json:"is_ordered,omitempty"`
}

type ReadingListComicPayload struct {
	ComicID int `json:"comic_id" validate:"required"`
}

type ReorderReadingListPayload struct {
	ComicIDs []int `json:"comic_ids" validate:"required,min=1,dive,required"`
}
