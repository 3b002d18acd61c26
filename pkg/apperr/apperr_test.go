package apperr

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{Code("made-up"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), "code %s", tt.code)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(ErrThreadNotFound))
	assert.Equal(t, CodeConflict, CodeOf(ErrDuplicateMessage))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeInternal, CodeOf(Internal("db down", io.ErrUnexpectedEOF)))
}

func TestUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := Internal("query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), cause.Error())
}

func TestIs(t *testing.T) {
	assert.True(t, Is(ErrNotParticipant, CodeForbidden))
	assert.False(t, Is(ErrNotParticipant, CodeNotFound))
}
