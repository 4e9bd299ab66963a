package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
	"github.com/sooqna/sooqna_backend/repositories"
	"github.com/sooqna/sooqna_backend/services"
)

const (
	reconcileJobKeyPrefix = "reconcile:job:"
	reconcileJobTTL       = time.Hour
	reconcileJobTimeout   = 30 * time.Minute
)

// AdminController hosts the admin resync workflow: start a reconciliation
// run, poll its status, and fix a shop's agent/operator attribution.
type AdminController struct {
	reconciler *services.Reconciler
	shops      *repositories.ShopRepository
	redis      *redis.Client
}

func NewAdminController(reconciler *services.Reconciler, shops *repositories.ShopRepository, redisClient *redis.Client) *AdminController {
	return &AdminController{reconciler: reconciler, shops: shops, redis: redisClient}
}

// StartResync kicks off reconcileAll in the background and returns a job ID
// the admin can poll.
func (ac *AdminController) StartResync(c echo.Context) error {
	jobID := uuid.NewString()
	job := models.ReconcileJob{
		JobID:     jobID,
		Status:    "running",
		StartedAt: time.Now(),
	}
	if err := ac.saveJob(c.Request().Context(), job); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to start reconciliation job",
		})
	}

	go ac.runResync(job)

	return c.JSON(http.StatusAccepted, models.Response{
		Status:  http.StatusAccepted,
		Message: "Reconciliation started",
		Data:    map[string]string{"jobId": jobID},
	})
}

// runResync executes the job detached from the HTTP request, bounded by its
// own timeout. Cancellation mid-run still yields a partial report.
func (ac *AdminController) runResync(job models.ReconcileJob) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileJobTimeout)
	defer cancel()

	report, err := ac.reconciler.ReconcileAll(ctx)

	now := time.Now()
	job.FinishedAt = &now
	job.Report = report
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
		log.Printf("Reconciliation job %s failed: %v", job.JobID, err)
	} else {
		job.Status = "done"
	}

	if err := ac.saveJob(context.Background(), job); err != nil {
		log.Printf("Failed to save reconciliation job %s: %v", job.JobID, err)
	}
}

// GetResyncStatus returns the status and, once finished, the report of a
// reconciliation job.
func (ac *AdminController) GetResyncStatus(c echo.Context) error {
	jobID := c.Param("jobId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw, err := ac.redis.Get(ctx, reconcileJobKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Unknown or expired job ID",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to read job status",
		})
	}

	var job models.ReconcileJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode job status",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Job status retrieved successfully",
		Data:    job,
	})
}

// FixShopRelationships sets or clears a shop's agentId/operatorId. The
// change only reaches commissions on the next resync, and only for records
// still pending.
func (ac *AdminController) FixShopRelationships(c echo.Context) error {
	shopID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid shop ID",
		})
	}

	var req models.FixShopRelationshipsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	agentID, setAgent, err := parseOptionalObjectID(req.AgentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid agent ID",
		})
	}
	operatorID, setOperator, err := parseOptionalObjectID(req.OperatorID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid operator ID",
		})
	}
	if !setAgent && !setOperator {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Nothing to update",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := ac.shops.FixRelationships(ctx, shopID, agentID, operatorID, setAgent, setOperator); err != nil {
		if err == models.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Shop not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update shop relationships",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Shop relationships updated, run a resync to propagate into commissions",
	})
}

func (ac *AdminController) saveJob(ctx context.Context, job models.ReconcileJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ac.redis.Set(saveCtx, reconcileJobKeyPrefix+job.JobID, raw, reconcileJobTTL).Err()
}

// parseOptionalObjectID maps an optional hex string to (value, present).
// An empty string means "clear the field".
func parseOptionalObjectID(raw *string) (*primitive.ObjectID, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if *raw == "" {
		return nil, true, nil
	}
	id, err := primitive.ObjectIDFromHex(*raw)
	if err != nil {
		return nil, false, err
	}
	return &id, true, nil
}
