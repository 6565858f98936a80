package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/encore-live/server/internal/domain"
	syncpkg "github.com/encore-live/server/internal/sync"
	"github.com/encore-live/server/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"RequestNotFound", domain.ErrRequestNotFound, http.StatusNotFound, errors.ErrCodeNotFound},
		{"SongNotFound", domain.ErrSongNotFound, http.StatusNotFound, errors.ErrCodeNotFound},
		{"DuplicatePendingTitle", domain.ErrDuplicatePendingTitle, http.StatusConflict, errors.ErrCodeConstraintViolation},
		{"MutationInFlight", syncpkg.ErrInFlight, http.StatusConflict, errors.ErrCodeConstraintViolation},
		{"RequestPlayed", domain.ErrRequestPlayed, http.StatusConflict, errors.ErrCodeInvariantViolation},
		{"ActiveSetListDelete", domain.ErrSetListActive, http.StatusConflict, errors.ErrCodeInvariantViolation},
		{"EmptyTitle", domain.ErrEmptyTitle, http.StatusBadRequest, errors.ErrCodeValidationFailed},
		{"MessageTooLong", domain.ErrMessageTooLong, http.StatusBadRequest, errors.ErrCodeValidationFailed},
		{"Unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, errors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			handleError(c, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.err.Error(), body.Error.Message)
		})
	}

	t.Run("WrappedSentinelStillClassified", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)

		handleError(c, fmt.Errorf("delete set list: %w", domain.ErrSetListActive))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), errors.ErrCodeInvariantViolation)
	})

	t.Run("CodedErrorPassesThrough", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)

		handleError(c, errors.ErrNetworkFailure.WithError(fmt.Errorf("dial tcp: connection refused")))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), errors.ErrCodeNetworkFailure)
	})
}
