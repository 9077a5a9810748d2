package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "project:42", ProjectRoom(42))
	assert.Equal(t, "user:7", UserRoom(7))
}

func TestResponseConstructors(t *testing.T) {
	tcases := []struct {
		name         string
		msg          *ServerMessage
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "ok",
			msg:          NoErrOK(1, map[string]any{"k": "v"}),
			expectedCode: http.StatusOK,
		},
		{
			name:         "accepted",
			msg:          NoErrAccepted(2),
			expectedCode: http.StatusAccepted,
		},
		{
			name:         "project not found",
			msg:          ErrProjectNotFound(3),
			expectedCode: http.StatusNotFound,
			expectedErr:  "project not found",
		},
		{
			name:         "task not found",
			msg:          ErrTaskNotFound(4),
			expectedCode: http.StatusNotFound,
			expectedErr:  "task not found",
		},
		{
			name:         "access denied",
			msg:          ErrAccessDenied(5),
			expectedCode: http.StatusForbidden,
			expectedErr:  "access denied",
		},
		{
			name:         "internal error",
			msg:          ErrInternalError(6),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "internal server error",
		},
		{
			name:         "service unavailable",
			msg:          ErrServiceUnavailable(7),
			expectedCode: http.StatusServiceUnavailable,
			expectedErr:  "service unavailable",
		},
		{
			name:         "invalid message",
			msg:          ErrInvalidMessage(8),
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid message format",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotNil(t, tc.msg.Response, "expected a response payload")
			assert.Equal(t, tc.expectedCode, tc.msg.Response.ResponseCode)
			assert.Equal(t, tc.expectedErr, tc.msg.Response.Error)
			assert.False(t, tc.msg.Timestamp.IsZero(), "expected timestamp to be set")
		})
	}
}

func TestErrInvalidMessageNegativeId(t *testing.T) {
	msg := ErrInvalidMessage(-1)
	assert.Zero(t, msg.Id, "negative ids are not echoed back")
}
