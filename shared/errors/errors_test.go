package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"unauthorized", Unauthorized(), ClassAuthorization},
		{"validation", Validation("title is %s", "empty"), ClassValidation},
		{"username taken", ErrUsernameTaken, ClassValidation},
		{"wrapped username taken", fmt.Errorf("insert user: %w", ErrUsernameTaken), ClassValidation},
		{"credentials", InvalidCredentials(), ClassCredential},
		{"plain error", errors.New("connection refused"), ClassRepository},
		{"status error without code", &ErrorWithStatusCode{Message: "x", StatusCode: http.StatusTeapot}, ClassRepository},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassOf(tt.err))
		})
	}
}

func TestValidationMessage(t *testing.T) {
	err := Validation("limit must be >= 0, got %d", -1)
	assert.Equal(t, "limit must be >= 0, got -1", err.Error())
	assert.True(t, Is[*ErrorWithStatusCode](err))
	assert.False(t, Is[*ErrorWithStatusCode](errors.New("plain")))
}

func TestInvalidCredentialsIsGeneric(t *testing.T) {
	a, b := InvalidCredentials(), InvalidCredentials()
	assert.Equal(t, a.Error(), b.Error())
	assert.NotContains(t, a.Error(), "exist")
}
