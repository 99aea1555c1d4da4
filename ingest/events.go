package ingest

import (
	"context"
	"time"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/utils"
	"github.com/sirupsen/logrus"
)

// ImportEvent is published once per finished import.
type ImportEvent struct {
	ImportID       string     `json:"import_id"`
	Stage          string     `json:"stage"`
	Message        string     `json:"message"`
	Table          string     `json:"table"`
	FileName       string     `json:"file_name,omitempty"`
	TotalRows      int        `json:"total_rows"`
	Imported       int        `json:"imported"`
	Errors         int        `json:"errors"`
	ArchivedObject string     `json:"archived_object,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CorrelationId  string     `json:"correlation_id,omitempty"`
}

// PublishFunc publishes obj to topic and returns the message id.
type PublishFunc func(ctx context.Context, topic string, obj interface{}, attrs map[string]string) (string, error)

func newImportEvent(ctx context.Context, job models.ImportJob) ImportEvent {
	ev := ImportEvent{
		ImportID:       job.ID,
		Stage:          string(job.Stage),
		Message:        job.Message,
		Table:          job.Table,
		FileName:       job.FileName,
		TotalRows:      job.ValidRows,
		Imported:       job.Imported,
		Errors:         job.Errors,
		ArchivedObject: job.ArchivedObject,
		FinishedAt:     job.FinishedAt,
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		ev.CorrelationId = cid
	}
	return ev
}

// PubSubHook publishes an ImportEvent for every finished job. A nil publish uses config.PublishJSON.
func PubSubHook(topic string, publish PublishFunc) FinishHook {
	if publish == nil {
		publish = config.PublishJSON
	}
	return func(ctx context.Context, job models.ImportJob) {
		ev := newImportEvent(ctx, job)
		attrs := map[string]string{"stage": ev.Stage, "table": ev.Table}
		id, err := publish(ctx, topic, ev, attrs)
		if err != nil {
			config.LogError(config.GetLogger(), "ingest", "PubSubHook", "publish import event", ev.ImportID, err)
			return
		}
		config.GetLogger().WithFields(logrus.Fields{
			"module":    "ingest",
			"importId":  ev.ImportID,
			"messageId": id,
			"topic":     topic,
		}).Info("import event published")
	}
}
