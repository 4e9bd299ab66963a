package controllers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
	"github.com/sooqna/sooqna_backend/services"
)

// PaymentController receives payment-success events from the payment
// gateway and runs the single-payment commission pipeline.
type PaymentController struct {
	reconciler *services.Reconciler
}

func NewPaymentController(reconciler *services.Reconciler) *PaymentController {
	return &PaymentController{reconciler: reconciler}
}

// HandlePaymentSuccess processes the gateway webhook. The pipeline is
// idempotent, so the gateway is free to retry on any non-2xx response.
func (pc *PaymentController) HandlePaymentSuccess(c echo.Context) error {
	if !webhookAuthorized(c) {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid webhook secret",
		})
	}

	var event models.PaymentSuccessEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	shopID, err := primitive.ObjectIDFromHex(event.ShopID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid shop ID",
		})
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	payment := models.Payment{
		PaymentID: event.PaymentID,
		ShopID:    shopID,
		Amount:    event.Amount,
		Status:    models.PaymentStatusSuccess,
		PaidAt:    occurredAt,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	outcome, err := pc.reconciler.ProcessPaymentEvent(ctx, payment)
	if err != nil {
		log.Printf("Payment pipeline failed for %s: %v", event.PaymentID, err)
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Shop not found for payment",
			})
		case errors.Is(err, models.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid payment amount",
			})
		case errors.Is(err, models.ErrPersistenceConflict):
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Concurrent write conflict, retry the event",
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to process payment event",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment processed",
		Data: map[string]interface{}{
			"paymentId": event.PaymentID,
			"outcome":   outcome,
		},
	})
}

// webhookAuthorized checks the shared secret the gateway sends. When no
// secret is configured (local development) the check is skipped.
func webhookAuthorized(c echo.Context) bool {
	secret := os.Getenv("WEBHOOK_SECRET")
	if secret == "" {
		return true
	}
	provided := c.Request().Header.Get("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}
