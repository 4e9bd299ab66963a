package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
	"github.com/sooqna/sooqna_backend/repositories"
	"github.com/sooqna/sooqna_backend/services"
)

// CommissionController exposes the dashboard query API: commission totals
// and breakdowns per shop, agent or operator, with an optional date range.
type CommissionController struct {
	commissions *repositories.CommissionRepository
	ledger      *services.CommissionLedger
}

func NewCommissionController(commissions *repositories.CommissionRepository, ledger *services.CommissionLedger) *CommissionController {
	return &CommissionController{commissions: commissions, ledger: ledger}
}

// GetShopCommissions returns breakdown and records for one shop
func (cc *CommissionController) GetShopCommissions(c echo.Context) error {
	return cc.breakdown(c, "shopId", c.Param("shopId"))
}

// GetAgentCommissions returns breakdown and records for one agent
func (cc *CommissionController) GetAgentCommissions(c echo.Context) error {
	return cc.breakdown(c, "agentId", c.Param("agentId"))
}

// GetOperatorCommissions returns breakdown and records for one operator
func (cc *CommissionController) GetOperatorCommissions(c echo.Context) error {
	return cc.breakdown(c, "operatorId", c.Param("operatorId"))
}

// GetCommissionByPayment returns the single ledger entry for a payment
func (cc *CommissionController) GetCommissionByPayment(c echo.Context) error {
	paymentID := c.Param("paymentId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	commission, err := cc.ledger.FindByPayment(ctx, paymentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch commission",
		})
	}
	if commission == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "No commission for this payment",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission retrieved successfully",
		Data:    commission,
	})
}

func (cc *CommissionController) breakdown(c echo.Context, field, rawID string) error {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid ID",
		})
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid date range, use YYYY-MM-DD or RFC3339",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	totals, err := cc.commissions.Breakdown(ctx, field, id, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to aggregate commissions",
		})
	}

	records, err := cc.commissions.ListByField(ctx, field, id, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch commissions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data: map[string]interface{}{
			"totals":      totals,
			"commissions": records,
		},
	})
}

// parseDateRange reads the optional from/to query parameters. A bare date
// for "to" is treated as inclusive end of day.
func parseDateRange(c echo.Context) (*primitive.DateTime, *primitive.DateTime, error) {
	var from, to *primitive.DateTime

	if raw := c.QueryParam("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, nil, err
		}
		dt := primitive.NewDateTimeFromTime(t)
		from = &dt
	}

	if raw := c.QueryParam("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, nil, err
		}
		if len(raw) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		dt := primitive.NewDateTimeFromTime(t)
		to = &dt
	}

	return from, to, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
