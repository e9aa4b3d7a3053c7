package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerError(t *testing.T) {
	t.Run("message includes op rule and cause", func(t *testing.T) {
		err := NewAccessDenied("project.publish", "owner")
		assert.Equal(t, "project.publish: access denied (rule: owner)", err.Error())

		cause := stderrors.New("connection reset")
		err = NewStoreFailure("user.read", cause)
		assert.Equal(t, "user.read: store failure: connection reset", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("errors.Is matches by kind", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewNotFound("project.read", "project %q", "Spring"))

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrConflict)
		assert.NotErrorIs(t, err, NewNotFound("project.read", "project %q", "Autumn"))
	})

	t.Run("KindOf", func(t *testing.T) {
		assert.Equal(t, KindConflict, KindOf(NewConflict("op", "duplicate")))
		assert.Equal(t, KindValidationFailed, KindOf(fmt.Errorf("x: %w", NewValidation("op", "empty"))))
		assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
		assert.Equal(t, Kind(""), KindOf(nil))
	})
}

func TestRespondWithBrokerError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"access denied", NewAccessDenied("principal.write", "admin"), http.StatusForbidden, ErrCodeForbidden, "Access denied"},
		{"not found", NewNotFound("user.read", "user %q", "bob"), http.StatusNotFound, ErrCodeNotFound, `user "bob"`},
		{"conflict", NewConflict("project.create", "project exists"), http.StatusConflict, ErrCodeConflict, "project exists"},
		{"validation", NewValidation("user.read", "user name must not be empty"), http.StatusBadRequest, ErrCodeInvalidInput, "user name must not be empty"},
		{"store failure hides cause", NewStoreFailure("user.read", stderrors.New("dsn leaked")), http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"},
		{"foreign error", stderrors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithBrokerError(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
