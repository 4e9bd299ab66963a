package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
	"github.com/sooqna/sooqna_backend/services"
	"github.com/sooqna/sooqna_backend/utils"
)

// WithdrawalController serves the withdrawal UI: balance, history, request
// creation, and the admin approve/reject/paid transitions.
type WithdrawalController struct {
	withdrawals *services.WithdrawalLedger
	commissions *services.CommissionLedger
}

func NewWithdrawalController(withdrawals *services.WithdrawalLedger, commissions *services.CommissionLedger) *WithdrawalController {
	return &WithdrawalController{withdrawals: withdrawals, commissions: commissions}
}

// GetBalance returns the authenticated user's available balance
func (wc *WithdrawalController) GetBalance(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	balance, err := wc.withdrawals.AvailableBalance(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute balance",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Balance retrieved successfully",
		Data:    map[string]int64{"availableBalance": balance},
	})
}

// GetHistory retrieves all commission and withdrawal records for the
// authenticated user, plus the current balance.
func (wc *WithdrawalController) GetHistory(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	withdrawals, err := wc.withdrawals.History(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch withdrawals",
		})
	}

	commissions, err := wc.commissions.FindByBeneficiary(ctx, userID, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch commissions",
		})
	}

	balance, err := wc.withdrawals.AvailableBalance(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute balance",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "History retrieved successfully",
		Data: map[string]interface{}{
			"availableBalance": balance,
			"withdrawals":      withdrawals,
			"commissions":      commissions,
		},
	})
}

// RequestWithdrawal creates a withdrawal request for the authenticated user
func (wc *WithdrawalController) RequestWithdrawal(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	var req models.WithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	withdrawal, err := wc.withdrawals.RequestWithdrawal(ctx, userID, req.Amount, req.UserNote)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientBalance):
			return c.JSON(http.StatusUnprocessableEntity, models.Response{
				Status:  http.StatusUnprocessableEntity,
				Message: "Requested amount exceeds available balance",
			})
		case errors.Is(err, models.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Withdrawal amount must be positive",
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to create withdrawal request",
			})
		}
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Withdrawal request created successfully",
		Data:    withdrawal,
	})
}

// ApproveWithdrawal transitions a withdrawal to approved (admin only)
func (wc *WithdrawalController) ApproveWithdrawal(c echo.Context) error {
	return wc.adminTransition(c, func(ctx context.Context, id, adminID primitive.ObjectID, note string) error {
		return wc.withdrawals.Approve(ctx, id, adminID, note)
	}, "Withdrawal approved")
}

// RejectWithdrawal transitions a withdrawal to rejected (admin only)
func (wc *WithdrawalController) RejectWithdrawal(c echo.Context) error {
	return wc.adminTransition(c, func(ctx context.Context, id, adminID primitive.ObjectID, note string) error {
		return wc.withdrawals.Reject(ctx, id, adminID, note)
	}, "Withdrawal rejected")
}

// MarkWithdrawalPaid transitions a withdrawal to paid and settles the
// covering commissions (admin only)
func (wc *WithdrawalController) MarkWithdrawalPaid(c echo.Context) error {
	return wc.adminTransition(c, func(ctx context.Context, id, adminID primitive.ObjectID, note string) error {
		return wc.withdrawals.MarkPaid(ctx, id, adminID)
	}, "Withdrawal marked as paid")
}

func (wc *WithdrawalController) adminTransition(c echo.Context, fn func(ctx context.Context, id, adminID primitive.ObjectID, note string) error, successMsg string) error {
	adminID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID",
		})
	}

	var body struct {
		Note string `json:"note"`
	}
	// Note is optional; ignore bind errors for an empty body
	_ = c.Bind(&body)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if err := fn(ctx, id, adminID, body.Note); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Withdrawal not found",
			})
		case errors.Is(err, models.ErrInvalidStateTransition):
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Withdrawal is not in a state that allows this transition",
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to update withdrawal",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: successMsg,
	})
}
