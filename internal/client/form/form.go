package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/userconsole/internal/client/models"
)

// Form holds the state of one open create or edit form.
type Form struct {
	data   Data
	errors Errors
	// editing is the record being edited, nil in create mode.
	editing *models.User
}

// New opens an empty create form.
func New() *Form {
	return &Form{errors: Errors{}}
}

// NewEdit opens a form prefilled from u. The password starts blank.
func NewEdit(u models.User) *Form {
	return &Form{
		data: Data{
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Phone:     u.Phone,
		},
		errors:  Errors{},
		editing: &u,
	}
}

func (f *Form) IsEdit() bool {
	return f.editing != nil
}

// Editing returns the record being edited, or nil in create mode.
func (f *Form) Editing() *models.User {
	return f.editing
}

func (f *Form) Data() Data {
	return f.data
}

// Errors returns a copy of the current error set.
func (f *Form) Errors() Errors {
	out := make(Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Set changes one field and drops that field's error without revalidating
// the others.
func (f *Form) Set(field, value string) error {
	switch field {
	case FieldEmail:
		f.data.Email = value
	case FieldFirstName:
		f.data.FirstName = value
	case FieldLastName:
		f.data.LastName = value
	case FieldPhone:
		f.data.Phone = value
	case FieldPassword:
		f.data.Password = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	delete(f.errors, field)
	return nil
}

// SubmitFunc receives validated data. In edit mode a blank password means
// "keep the current one"; Patch leaves it out of the payload.
type SubmitFunc func(ctx context.Context, d Data) error

// Submit validates the form and calls onSubmit only when it is valid. A
// failure from onSubmit is kept under FieldForm and returned.
func (f *Form) Submit(ctx context.Context, onSubmit SubmitFunc) error {
	f.errors = Validate(f.data, f.IsEdit())
	if len(f.errors) > 0 {
		return f.Errors()
	}

	if err := onSubmit(ctx, f.data); err != nil {
		f.errors[FieldForm] = err.Error()
		return err
	}
	return nil
}

// Draft converts d to a create payload.
func (d Data) Draft() models.UserDraft {
	return models.UserDraft{
		Email:     d.Email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Phone:     d.Phone,
		Password:  d.Password,
	}
}

// Patch converts d to an update payload; a blank password is omitted on the wire.
func (d Data) Patch() models.UserPatch {
	return models.UserPatch{
		Email:     d.Email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Phone:     d.Phone,
		Password:  d.Password,
	}
}

// AsErrors extracts a validation error set from err, if there is one.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
