// Package form implements the create/edit user form: field validation,
// per-field error state and submission.
package form
