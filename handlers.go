package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/sgdatafocus/telemetry_backend/completeness"
	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/consolidate"
	"bitbucket.org/sgdatafocus/telemetry_backend/correlate"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// application holds the wired engines. Populated in main() once the
// database is ready; handlers 503 until then via the readiness gate.
type application struct {
	db           *gorm.DB
	store        store.Store
	worker       *consolidate.Worker
	completeness *completeness.Engine
	correlator   *correlate.Engine
}

var app *application

// PubSubPushMessage is the Pub/Sub push delivery envelope.
type PubSubPushMessage struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// RunTrigger is the payload published when a consolidation run is
// created; the push endpoint picks it up and processes the run.
type RunTrigger struct {
	RunUid        string `json:"run_uid"`
	CorrelationId string `json:"correlation_id,omitempty"`
}

type consolidateRequest struct {
	Mission     string   `json:"mission"`
	TargetKind  string   `json:"target_kind" binding:"required"`
	ReportNames []string `json:"report_names" binding:"required,min=1"`
}

func consolidateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req consolidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		if _, err := consolidate.SpecFor(consolidate.Kind(req.TargetKind)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		run := models.ConsolidationRun{
			RunUid:      uuid.NewString(),
			Mission:     strings.ToUpper(strings.TrimSpace(req.Mission)),
			TargetKind:  req.TargetKind,
			ReportNames: strings.Join(req.ReportNames, ","),
			Status:      models.RunStatusPending,
		}
		if err := app.db.WithContext(c.Request.Context()).Create(&run).Error; err != nil {
			config.LogError(logger, "handlers.go", "consolidateHandler", "create run", req, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create run"})
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		trigger := RunTrigger{RunUid: run.RunUid, CorrelationId: cid}

		if config.PubSubConfigured() {
			if err := publishRunTrigger(c.Request.Context(), trigger); err != nil {
				config.LogError(logger, "handlers.go", "consolidateHandler", "publish trigger", trigger, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not publish run trigger"})
				return
			}
		} else {
			// Local/dev fallback: no broker, process in the background.
			go func() {
				ctx := utils.SetCorrelationIdInContext(context.Background(), cid)
				if err := app.worker.ProcessRun(ctx, run.RunUid); err != nil {
					config.LogError(logger, "handlers.go", "consolidateHandler", "inline run", run.RunUid, err)
				}
			}()
		}

		c.JSON(http.StatusAccepted, gin.H{
			"run_uid":        run.RunUid,
			"status":         run.Status,
			"report_names":   req.ReportNames,
			"correlation_id": cid,
		})
	}
}

func publishRunTrigger(ctx context.Context, trigger RunTrigger) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topicName := strings.TrimSpace(os.Getenv("CONSOLIDATION_TRIGGER_TOPIC"))
	if topicName == "" {
		topicName = "cds-consolidation-trigger"
	}
	topic, err := config.CreateTopicIfNotExists(client, topicName)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(trigger)
	if err != nil {
		return err
	}
	_, err = topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"run_uid": trigger.RunUid},
	}).Get(ctx)
	return err
}

func runPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "handlers.go", "runPushHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		var msg PubSubPushMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			config.LogError(logger, "handlers.go", "runPushHandler", "unmarshal envelope", body, err)
			c.Status(http.StatusNoContent)
			return
		}

		var trigger RunTrigger
		if err := json.Unmarshal(msg.Message.Data, &trigger); err != nil {
			config.LogError(logger, "handlers.go", "runPushHandler", "unmarshal trigger", msg.Message.Data, err)
			c.Status(http.StatusNoContent)
			return
		}
		if trigger.RunUid == "" {
			config.LogError(logger, "handlers.go", "runPushHandler", "empty run_uid", msg.Message.ID, errors.New("run_uid required"))
			c.Status(http.StatusNoContent)
			return
		}

		cid := trigger.CorrelationId
		if cid == "" {
			cid = msg.Message.ID
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)

		if err := app.worker.ProcessRun(ctx, trigger.RunUid); err != nil {
			logger.WithFields(logrus.Fields{
				"module":         "handlers.go",
				"run_uid":        trigger.RunUid,
				"message_id":     msg.Message.ID,
				"correlation_id": cid,
			}).Error("run processing failed: " + err.Error())
			// Non-2xx tells Pub/Sub to retry (and potentially route to DLQ).
			c.Status(http.StatusInternalServerError)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func runStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := models.GetConsolidationRunByUid(c.Request.Context(), app.db, c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func correlateTicketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var report correlate.TicketReport
		if err := c.ShouldBindJSON(&report); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		err := app.correlator.CorrelateTicket(c.Request.Context(), report)
		if errors.Is(err, utils.ErrTicketBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "key": report.Key})
			return
		}
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "correlateTicketHandler", report.Key, report, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": report.Key})
	}
}

type completenessRequest struct {
	DatatakeIds []string `json:"datatake_ids" binding:"required,min=1"`
}

func completenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req completenessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		computed := 0
		var failed []string
		for _, id := range req.DatatakeIds {
			if err := app.completeness.ComputeForDatatakeID(c.Request.Context(), id); err != nil {
				config.LogError(config.GetLogger(), "handlers.go", "completenessHandler", id, nil, err)
				failed = append(failed, id)
				continue
			}
			computed++
		}
		c.JSON(http.StatusOK, gin.H{"computed": computed, "failed": failed})
	}
}
