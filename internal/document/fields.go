package document

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var defaultValidator = initValidator()

// initValidator reports field names by their json tag so errors match the request body.
func initValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Content field names used in change sets.
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldType    = "type"
)

// CreateFields is the input of a document creation.
type CreateFields struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content"`
	Type    string `json:"type" validate:"omitempty,max=64"`
	Status  Status `json:"status" validate:"omitempty,oneof=draft published"`
	Access  Access `json:"access" validate:"omitempty,oneof=private public shared"`
}

// Validate trims the title and checks field rules.
func (f *CreateFields) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	return toValidationError(defaultValidator.Struct(f), nil)
}

// UpdateFields holds the fields a caller supplied for an update; nil means untouched.
type UpdateFields struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Content *string `json:"content,omitempty"`
	Type    *string `json:"type,omitempty" validate:"omitempty,max=64"`
	Status  *Status `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	Access  *Access `json:"access,omitempty" validate:"omitempty,oneof=private public shared"`
}

// Validate checks field rules; a supplied title may not be blank.
func (f *UpdateFields) Validate() error {
	extra := map[string]string{}
	if f.Title != nil {
		t := strings.TrimSpace(*f.Title)
		f.Title = &t
		if t == "" {
			extra[FieldTitle] = "must not be blank"
		}
	}
	return toValidationError(defaultValidator.Struct(f), extra)
}

// ContentChanges lists the content fields whose supplied value differs from d.
// Status and access are never part of the result.
func (f *UpdateFields) ContentChanges(d *Document) []string {
	var changed []string
	if f.Title != nil && *f.Title != d.Title {
		changed = append(changed, FieldTitle)
	}
	if f.Content != nil && *f.Content != d.Content {
		changed = append(changed, FieldContent)
	}
	if f.Type != nil && *f.Type != d.Type {
		changed = append(changed, FieldType)
	}
	return changed
}

// MetaChanged reports whether status or access would change on d.
func (f *UpdateFields) MetaChanged(d *Document) bool {
	return (f.Status != nil && *f.Status != d.Status) || (f.Access != nil && *f.Access != d.Access)
}

// Apply writes every supplied field onto d.
func (f *UpdateFields) Apply(d *Document) {
	if f.Title != nil {
		d.Title = *f.Title
	}
	if f.Content != nil {
		d.Content = *f.Content
	}
	if f.Type != nil {
		d.Type = *f.Type
	}
	if f.Status != nil {
		d.Status = *f.Status
	}
	if f.Access != nil {
		d.Access = *f.Access
	}
}

func toValidationError(err error, extra map[string]string) error {
	fields := map[string]string{}
	for k, v := range extra {
		fields[k] = v
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate fields: %w", err)
		}
		for _, fe := range verrs {
			if _, ok := fields[fe.Field()]; ok {
				continue
			}
			fields[fe.Field()] = describe(fe)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
