package folders

type CreateFolderPayload struct {
	LibraryID int    `json:"library_id" validate:"required"`
	Path      string `json:"path" validate:"required,max=1000"`
}

type ListFoldersQuery struct {
	Limit     int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID *int `query:"library_id" json:"library_id,omitempty"`
	ParentID  *int `query:"parent_id" json:"parent_id,omitempty"`
	RootOnly  bool `query:"root_only" json:"root_only,omitempty"`
}

type UpdateFolderPayload struct {
	Completed *bool `json:"completed,omitempty"`
}
