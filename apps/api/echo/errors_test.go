package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

func Test_errorResponse(t *testing.T) {
	_, translator := core.NewValidator()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
		wantOk   bool
	}{
		{
			name:     "missing jwt",
			err:      middleware.ErrJWTMissing,
			wantCode: http.StatusUnauthorized, wantBody: echo.Map{"error": "missing or malformed jwt"}, wantOk: true,
		},
		{
			name:     "wrapped forbidden",
			err:      errors.Wrap(classroom.ErrForbidden, "grading submission"),
			wantCode: http.StatusForbidden, wantBody: echo.Map{"error": "permission denied"}, wantOk: true,
		},
		{
			name:     "not found",
			err:      errors.Wrap(user.ErrNotFound, "getting user"),
			wantCode: http.StatusNotFound, wantBody: echo.Map{"error": "not found"}, wantOk: true,
		},
		{
			name:     "field errors",
			err:      core.NewValidationError(nil, core.FieldError{Field: "grade", Error: "grade cannot exceed 20 points"}),
			wantCode: http.StatusBadRequest, wantBody: map[string]string{"grade": "grade cannot exceed 20 points"}, wantOk: true,
		},
		{
			name:     "validation message",
			err:      core.NewValidationError(errors.New("nothing to update")),
			wantCode: http.StatusBadRequest, wantBody: echo.Map{"error": "nothing to update"}, wantOk: true,
		},
		{
			name:     "http error",
			err:      echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported media type"),
			wantCode: http.StatusUnsupportedMediaType, wantBody: echo.Map{"error": "unsupported media type"}, wantOk: true,
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError, wantBody: echo.Map{"error": "Internal Server Error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, ok := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}
