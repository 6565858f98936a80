package handler

import (
	stderrors "errors"

	"github.com/encore-live/server/internal/domain"
	syncpkg "github.com/encore-live/server/internal/sync"
	"github.com/encore-live/server/pkg/errors"

	"github.com/gin-gonic/gin"
)

// classify wraps a domain sentinel in its coded application error. The code
// tells the client how to react: validation failures never reached the store,
// constraint rejections roll back the optimistic guess, invariant violations
// mean the operation performed no partial mutation.
func classify(err error) *errors.Error {
	switch {
	case stderrors.Is(err, domain.ErrRequestNotFound),
		stderrors.Is(err, domain.ErrSetListNotFound),
		stderrors.Is(err, domain.ErrSongNotFound):
		return errors.ErrNotFound.WithError(err)

	case stderrors.Is(err, domain.ErrDuplicatePendingTitle),
		stderrors.Is(err, syncpkg.ErrInFlight):
		return errors.ErrConstraintViolation.WithError(err)

	case stderrors.Is(err, domain.ErrRequestPlayed),
		stderrors.Is(err, domain.ErrSetListActive):
		return errors.ErrInvariantViolation.WithError(err)

	case stderrors.Is(err, domain.ErrEmptyUserID),
		stderrors.Is(err, domain.ErrEmptyTitle),
		stderrors.Is(err, domain.ErrEmptyName),
		stderrors.Is(err, domain.ErrMessageTooLong),
		stderrors.Is(err, domain.ErrPhotoTooLarge),
		stderrors.Is(err, domain.ErrInvalidSetListName):
		return errors.ErrValidationFailed.WithError(err)

	default:
		return errors.ErrInternal.WithError(err)
	}
}

// handleError writes the coded error envelope for err. Errors that already
// carry a code pass through unchanged.
func handleError(c *gin.Context, err error) {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		appErr = classify(err)
	}
	c.JSON(appErr.HTTPStatus, gin.H{"error": gin.H{
		"code":    appErr.Code,
		"message": err.Error(),
	}})
}
