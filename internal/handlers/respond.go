package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/hedge"
	"go-hedgevault/internal/vault"
)

// statusFor maps the state machine rejections onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vault.ErrNotFound), errors.Is(err, hedge.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrUnauthorized), errors.Is(err, hedge.ErrUnauthorized),
		errors.Is(err, capability.ErrUnauthorized), errors.Is(err, vault.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrPaused), errors.Is(err, hedge.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, vault.ErrAlreadyExists), errors.Is(err, hedge.ErrAlreadyExists),
		errors.Is(err, vault.ErrAlreadyExecuted), errors.Is(err, vault.ErrAlreadyCancelled),
		errors.Is(err, hedge.ErrNullifierAlreadyUsed), errors.Is(err, hedge.ErrAlreadySettled),
		errors.Is(err, hedge.ErrAlreadyAggregated), errors.Is(err, vault.ErrWithdrawalNotReady),
		errors.Is(err, hedge.ErrBatchNotReady):
		return http.StatusConflict
	case errors.Is(err, vault.ErrInvalidAddress), errors.Is(err, vault.ErrZeroAmount),
		errors.Is(err, vault.ErrProxyInactive), errors.Is(err, vault.ErrInvalidProof),
		errors.Is(err, hedge.ErrInvalidProof), errors.Is(err, vault.ErrInsufficientBalance),
		errors.Is(err, capability.ErrUnknownRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
