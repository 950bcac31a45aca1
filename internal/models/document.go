package models

type DocumentStatus string

const (
	DocumentActive   DocumentStatus = "active"
	DocumentArchived DocumentStatus = "archived"
)

type Document struct {
	Model
	Title         string         `gorm:"size:255;not null" json:"title"`
	Filename      string         `gorm:"size:255;not null" json:"filename"`
	StorageKey    string         `gorm:"size:512;not null" json:"-"`
	MimeType      string         `gorm:"size:128" json:"mime_type"`
	Format        string         `gorm:"size:16" json:"format"` // detected from magic bytes
	Size          int64          `json:"size"`
	Status        DocumentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Version       int            `gorm:"not null;default:1" json:"version"`
	ExtractedText string         `gorm:"type:text" json:"extracted_text,omitempty"`
	Warnings      string         `gorm:"type:text" json:"warnings,omitempty"` // newline separated

	// ParentID points at the first version; nil for the original.
	ParentID *uint      `gorm:"index" json:"parent_id,omitempty"`
	Versions []Document `gorm:"foreignKey:ParentID" json:"versions,omitempty"`

	CaseID       *uint `gorm:"index" json:"case_id,omitempty"`
	ClientID     *uint `gorm:"index" json:"client_id,omitempty"`
	UploadedByID uint  `json:"uploaded_by_id"`

	Tags []Tag `gorm:"many2many:document_tags;" json:"tags,omitempty"`
}

// RootID is the id shared by every version of the document.
func (d Document) RootID() uint {
	if d.ParentID != nil {
		return *d.ParentID
	}
	return d.ID
}

type Tag struct {
	Model
	Name  string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Color string `gorm:"size:16" json:"color,omitempty"`
}
