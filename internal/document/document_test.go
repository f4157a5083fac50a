package document

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestContentChanges(t *testing.T) {
	d := &Document{Title: "T", Content: "C", Type: "text", Status: StatusDraft, Access: AccessPrivate}

	t.Run("identical values change nothing", func(t *testing.T) {
		f := &UpdateFields{Title: strPtr("T"), Content: strPtr("C"), Type: strPtr("text")}
		assert.Empty(t, f.ContentChanges(d))
		assert.False(t, f.MetaChanged(d))
	})

	t.Run("omitted fields are untouched", func(t *testing.T) {
		f := &UpdateFields{}
		assert.Empty(t, f.ContentChanges(d))
	})

	t.Run("each differing content field is listed", func(t *testing.T) {
		f := &UpdateFields{Title: strPtr("T2"), Type: strPtr("markdown")}
		assert.Equal(t, []string{FieldTitle, FieldType}, f.ContentChanges(d))
	})

	t.Run("clearing content counts as a change", func(t *testing.T) {
		f := &UpdateFields{Content: strPtr("")}
		assert.Equal(t, []string{FieldContent}, f.ContentChanges(d))
	})

	t.Run("status and access are metadata only", func(t *testing.T) {
		pub := AccessPublic
		f := &UpdateFields{Access: &pub}
		assert.Empty(t, f.ContentChanges(d))
		assert.True(t, f.MetaChanged(d))
	})
}

func TestApply(t *testing.T) {
	d := &Document{Title: "T", Content: "C", Type: "text", Status: StatusDraft, Access: AccessPrivate}
	pub := StatusPublished
	f := &UpdateFields{Content: strPtr("C2"), Status: &pub}
	f.Apply(d)
	assert.Equal(t, "T", d.Title)
	assert.Equal(t, "C2", d.Content)
	assert.Equal(t, StatusPublished, d.Status)
	assert.Equal(t, AccessPrivate, d.Access)
}

func TestCreateFieldsValidate(t *testing.T) {
	f := &CreateFields{Title: "  hello  "}
	require.NoError(t, f.Validate())
	assert.Equal(t, "hello", f.Title)

	err := (&CreateFields{Title: "   "}).Validate()
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "title")

	err = (&CreateFields{Title: "ok", Status: "archived", Access: "world"}).Validate()
	require.ErrorIs(t, err, ErrValidation)
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields["status"], "draft")
	assert.Contains(t, ve.Fields["access"], "public")
}

func TestUpdateFieldsValidate(t *testing.T) {
	require.NoError(t, (&UpdateFields{}).Validate())

	err := (&UpdateFields{Title: strPtr(" ")}).Validate()
	require.ErrorIs(t, err, ErrValidation)

	bad := Status("gone")
	err = (&UpdateFields{Status: &bad}).Validate()
	require.ErrorIs(t, err, ErrValidation)
}

func TestAccess(t *testing.T) {
	d := &Document{UserID: "owner", Access: AccessPrivate}
	assert.True(t, CanRead(d, "owner"))
	assert.False(t, CanRead(d, "other"))
	assert.False(t, CanWrite(d, "other"))

	d.Access = AccessShared
	assert.False(t, CanRead(d, "other"))

	d.Access = AccessPublic
	assert.True(t, CanRead(d, "other"))
	assert.False(t, CanWrite(d, "other"))
}

func TestMapHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrNotFound:                          http.StatusNotFound,
		ErrVersionNotFound:                   http.StatusNotFound,
		fmt.Errorf("wrap: %w", ErrForbidden): http.StatusForbidden,
		&ValidationError{Fields: map[string]string{"title": "is required"}}: http.StatusBadRequest,
		ErrConflict:              http.StatusConflict,
		errors.New("disk on fire"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, MapHTTPStatus(err), err.Error())
	}
}

func TestVersionSummaryOmitsContent(t *testing.T) {
	v := &Version{ID: "v", DocumentID: "d", VersionNumber: 3, Title: "T", Content: "secret", Type: "text"}
	s := v.Summary()
	assert.Equal(t, 3, s.VersionNumber)
	assert.Equal(t, "T", s.Title)
}
