package labels

type CreateLabelPayload struct {
	LibraryID int    `json:"library_id" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
	Color     string `json:"color,omitempty" validate:"omitempty,oneof=red orange yellow green cyan blue violet purple pink white light dark"`
}

type ListLabelsQuery struct {
	Limit     int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID *int `query:"library_id" json:"library_id,omitempty"`
}

type UpdateLabelPayload struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Color *string `json:"color,omitempty" validate:"omitempty,oneof=red orange yellow green cyan blue violet purple pink white light dark"`
}

type LabelComicPayload struct {
	ComicID int `json:"comic_id" validate:"required"`
}
