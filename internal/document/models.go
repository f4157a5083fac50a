package document

import "time"

// Status is the publication state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Access controls who besides the owner may read a document.
type Access string

const (
	AccessPrivate Access = "private"
	AccessPublic  Access = "public"
	AccessShared  Access = "shared"
)

// DefaultType is applied when a document is created without a type.
const DefaultType = "text"

// Document is the live projection of a document. Content-bearing fields are
// Title, Content and Type; every change to them is preceded by a Version.
type Document struct {
	ID             string    `json:"id" bson:"_id"`
	Title          string    `json:"title" bson:"title"`
	Content        string    `json:"content,omitempty" bson:"content,omitempty"`
	Type           string    `json:"type" bson:"type"`
	UserID         string    `json:"userId" bson:"userId"`
	Status         Status    `json:"status" bson:"status"`
	Access         Access    `json:"access" bson:"access"`
	CurrentVersion int       `json:"currentVersion" bson:"currentVersion"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DeepCopy returns a copy safe to mutate without touching stored state.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Version is an immutable snapshot of a document's content fields.
type Version struct {
	ID                string    `json:"id" bson:"_id"`
	DocumentID        string    `json:"documentId" bson:"documentId"`
	VersionNumber     int       `json:"versionNumber" bson:"versionNumber"`
	Title             string    `json:"title" bson:"title"`
	Content           string    `json:"content,omitempty" bson:"content,omitempty"`
	Type              string    `json:"type" bson:"type"`
	ModifiedBy        string    `json:"modifiedBy" bson:"modifiedBy"`
	ChangeDescription string    `json:"changeDescription,omitempty" bson:"changeDescription,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
}

// DeepCopy returns a copy of the version.
func (v *Version) DeepCopy() *Version {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Summary drops the content body for list responses.
func (v *Version) Summary() *VersionSummary {
	return &VersionSummary{
		ID:                v.ID,
		DocumentID:        v.DocumentID,
		VersionNumber:     v.VersionNumber,
		Title:             v.Title,
		Type:              v.Type,
		ModifiedBy:        v.ModifiedBy,
		ChangeDescription: v.ChangeDescription,
		CreatedAt:         v.CreatedAt,
	}
}

// VersionSummary is a Version without its content.
type VersionSummary struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"documentId"`
	VersionNumber     int       `json:"versionNumber"`
	Title             string    `json:"title"`
	Type              string    `json:"type"`
	ModifiedBy        string    `json:"modifiedBy"`
	ChangeDescription string    `json:"changeDescription,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// VersionPage is one page of a document's history, newest first.
type VersionPage struct {
	Data  []*VersionSummary `json:"data"`
	Total int               `json:"total"`
}

// Deleted is the acknowledgement returned by a delete.
type Deleted struct {
	Deleted bool `json:"deleted"`
}
