package core

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type signup struct {
	Username string `json:"username" validate:"required,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Secret   string `json:"-"`
}

func TestFieldErrors(t *testing.T) {
	validate, translator := NewValidator()

	tests := []struct {
		name   string
		err    error
		want   map[string]string
		wantOk bool
	}{
		{
			name:   "struct tags",
			err:    validate.Struct(signup{Username: "juma-m", Email: "nope"}),
			want:   map[string]string{"username": alphaNumUnderText, "email": "email must be a valid email address"},
			wantOk: true,
		},
		{
			name:   "required uses the custom text",
			err:    validate.Struct(signup{}),
			want:   map[string]string{"username": requiredText},
			wantOk: true,
		},
		{
			name:   "wrapped validation error",
			err:    errors.Wrap(NewValidationError(nil, FieldError{Field: "grade", Error: "too high"}), "grading"),
			want:   map[string]string{"grade": "too high"},
			wantOk: true,
		},
		{name: "validation error without fields", err: NewValidationError(errors.New("bad input"))},
		{name: "other error", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FieldErrors(tt.err, translator)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationError(t *testing.T) {
	cause := errors.New("a user with this email already exists")
	err := NewValidationError(cause, FieldError{Field: "email", Error: cause.Error()})
	assert.Equal(t, cause.Error(), err.Error())
	assert.True(t, errors.Is(err, cause))

	err = NewValidationError(nil, FieldError{Field: "max_points", Error: "must be greater than 0"})
	assert.Equal(t, "max_points: must be greater than 0", err.Error())
}

func TestNewValidator_registrars(t *testing.T) {
	var called bool
	NewValidator(func(_ *validator.Validate, _ ut.Translator) { called = true })
	assert.True(t, called)
}
