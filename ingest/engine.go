package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/store"
	"github.com/professorSergio12/Stock-Broker/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBatchSize = 500

	unknownSampleRows = 5
	hookTimeout       = 30 * time.Second

	msgNoDataRows  = "Excel file is empty or has no data rows"
	msgNoValidRows = "No valid rows found after mapping. Check column headers match schema."
)

// Upload is one spreadsheet handed to the engine.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
	// Table overrides the configured record table.
	Table string
}

// FinishHook runs after a job reaches completed or error.
type FinishHook func(ctx context.Context, job models.ImportJob)

// Archiver copies the raw upload somewhere durable and returns its location.
type Archiver func(ctx context.Context, jobID string, up Upload) (string, error)

type EngineConfig struct {
	Store     store.RecordStore
	Tracker   *Tracker
	Table     string
	BatchSize int
	Archive   Archiver
	Hooks     []FinishHook
	Logger    *logrus.Logger
	Tracer    trace.Tracer
}

// Engine runs spreadsheet imports: decode, map, then batched inserts.
type Engine struct {
	store     store.RecordStore
	tracker   *Tracker
	table     string
	batchSize int
	archive   Archiver
	hooks     []FinishHook
	logger    *logrus.Logger
	tracer    trace.Tracer
}

func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		store:     cfg.Store,
		tracker:   cfg.Tracker,
		table:     cfg.Table,
		batchSize: cfg.BatchSize,
		archive:   cfg.Archive,
		hooks:     cfg.Hooks,
		logger:    cfg.Logger,
		tracer:    cfg.Tracer,
	}
	if e.tracker == nil {
		e.tracker = NewTracker(time.Hour)
	}
	if e.table == "" {
		e.table = config.DefaultRecordTable
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.logger == nil {
		e.logger = config.GetLogger()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("stock-broker/ingest")
	}
	return e
}

func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// AddHook registers a finish hook. Call before the first Submit.
func (e *Engine) AddHook(h FinishHook) {
	e.hooks = append(e.hooks, h)
}

// NewImportID is the base-36 millisecond clock followed by 6 random characters.
func NewImportID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + suffix
}

func (e *Engine) newJob(up Upload) models.ImportJob {
	return models.ImportJob{
		Stage:        models.ImportStageParsing,
		Progress:     5,
		Message:      "Parsing Excel...",
		ErrorDetails: []string{},
		Table:        e.tableFor(up),
		FileName:     up.FileName,
		FileSize:     up.Size,
	}
}

func (e *Engine) tableFor(up Upload) string {
	if up.Table != "" {
		return up.Table
	}
	return e.table
}

// Submit registers a job and starts the pipeline in the background. The returned
// task is already running; the job is pollable through the tracker by task.ID.
func (e *Engine) Submit(ctx context.Context, up Upload) (*Task, error) {
	if len(up.Data) == 0 {
		return nil, utils.NewValidationError("file", "uploaded file is empty")
	}
	id := NewImportID()
	e.tracker.Create(id, e.newJob(up))

	// keep request values (correlation id) but not its cancellation
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := &Task{ID: id, done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(task.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("import panicked: %v", r)
				e.fail(id, err)
				task.job, _ = e.tracker.Get(id)
				task.err = err
			}
		}()
		task.job, task.err = e.Run(runCtx, id, up)
	}()
	return task, nil
}

// Run executes the whole pipeline synchronously. The job is created in the tracker
// when jobID is not registered yet. The returned error is the terminal failure, if any.
func (e *Engine) Run(ctx context.Context, jobID string, up Upload) (models.ImportJob, error) {
	if _, ok := e.tracker.Get(jobID); !ok {
		e.tracker.Create(jobID, e.newJob(up))
	}
	ctx, span := e.tracer.Start(ctx, "ingest.Run", trace.WithAttributes(
		attribute.String("import.id", jobID),
		attribute.String("import.file", up.FileName),
		attribute.Int64("import.bytes", up.Size),
	))
	defer span.End()

	log := e.logger.WithFields(logrus.Fields{
		"module":   "ingest",
		"importId": jobID,
	})
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		log = log.WithField("correlation_id", cid)
	}
	log.WithFields(logrus.Fields{"file": up.FileName, "bytes": up.Size}).Info("import started")

	err := e.run(ctx, jobID, up, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.fail(jobID, err)
		log.WithError(err).Error("import failed")
	}

	job, _ := e.tracker.Get(jobID)
	e.runHooks(ctx, job, log)
	return job, err
}

func (e *Engine) run(ctx context.Context, jobID string, up Upload, log *logrus.Entry) error {
	if e.archive != nil {
		if obj, err := e.archive(ctx, jobID, up); err != nil {
			log.WithError(err).Warn("archive upload failed; continuing")
		} else {
			e.tracker.Update(jobID, func(j *models.ImportJob) { j.ArchivedObject = obj })
		}
	}

	_, decodeSpan := e.tracer.Start(ctx, "ingest.decode")
	rows, err := Decode(up.Data)
	decodeSpan.End()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &utils.DecodeError{Msg: msgNoDataRows}
	}
	log.WithField("rows", len(rows)).Info("parsed workbook")

	e.tracker.Update(jobID, func(j *models.ImportJob) {
		j.TotalRows = len(rows)
		j.Stage = models.ImportStageMapping
		j.Progress = 15
		j.Message = "Mapping columns..."
	})

	txns, unknown := mapRows(rows)
	if len(txns) == 0 {
		return &utils.MappingError{Msg: msgNoValidRows}
	}
	if len(unknown) > 0 {
		log.WithField("unknownColumns", unknown).Warn("unknown columns detected")
	}

	table := e.tableFor(up)
	e.tracker.Update(jobID, func(j *models.ImportJob) {
		j.ValidRows = len(txns)
		j.Table = table
		j.Stage = models.ImportStageInserting
		j.Progress = 25
		j.Message = "Inserting into Data Store..."
	})

	imported, failed, err := e.insert(ctx, jobID, table, txns, log)
	if err != nil {
		return err
	}

	e.tracker.Update(jobID, func(j *models.ImportJob) {
		j.Stage = models.ImportStageCompleted
		j.Progress = 100
		j.Message = completionMessage(imported, len(txns), failed)
		j.UnknownColumns = unknown
	})
	log.WithFields(logrus.Fields{"imported": imported, "errors": failed}).Info("import completed")
	return nil
}

// mapRows maps every row, drops the empty ones and samples unknown headers from
// the first surviving rows.
func mapRows(rows []RawRow) ([]models.Transaction, []string) {
	txns := make([]models.Transaction, 0, len(rows))
	var unknown []string
	seen := map[string]struct{}{}
	for _, r := range rows {
		tx, unk := MapRow(r)
		if tx.IsEmpty() {
			continue
		}
		if len(txns) < unknownSampleRows {
			for _, u := range unk {
				if _, ok := seen[u]; !ok {
					seen[u] = struct{}{}
					unknown = append(unknown, u)
				}
			}
		}
		txns = append(txns, tx)
	}
	return txns, unknown
}

func (e *Engine) insert(ctx context.Context, jobID, table string, txns []models.Transaction, log *logrus.Entry) (int, int, error) {
	var (
		imported int
		failed   int
		details  []string
		total    = len(txns)
	)
	for start := 0; start < total; start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return imported, failed, fmt.Errorf("import cancelled: %w", err)
		}
		end := min(start+e.batchSize, total)
		batch := make([]store.Row, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, txns[i].Values())
		}

		batchCtx, span := e.tracer.Start(ctx, "ingest.batch", trace.WithAttributes(
			attribute.Int("batch.start", start+1),
			attribute.Int("batch.rows", len(batch)),
		))
		err := e.store.InsertRows(batchCtx, table, batch)
		if err == nil {
			imported += len(batch)
		} else {
			if store.IsUnavailable(err) {
				span.End()
				return imported, failed, err
			}
			log.WithError(err).WithField("batchStart", start+1).Warn("batch insert failed; retrying row by row")
			for j, row := range batch {
				rowErr := e.store.InsertRow(batchCtx, table, row)
				if rowErr == nil {
					imported++
					continue
				}
				if store.IsUnavailable(rowErr) {
					span.End()
					return imported, failed, rowErr
				}
				failed++
				if len(details) < models.MaxImportErrorDetails {
					msg := fmt.Sprintf("Row %d: %s", start+j+1, rowErrorText(rowErr))
					details = append(details, msg)
					log.Error(msg)
				}
			}
		}
		span.End()

		processed := end
		e.tracker.Update(jobID, func(j *models.ImportJob) {
			j.ProcessedRows = processed
			j.Imported = imported
			j.Errors = failed
			j.ErrorDetails = append([]string{}, details...)
			if p := insertProgress(processed, total); p > j.Progress {
				j.Progress = p
			}
			j.Message = fmt.Sprintf("Inserted %d/%d rows...", imported, total)
		})
	}
	return imported, failed, nil
}

// insertProgress maps inserted rows onto 25..95; 100 is reserved for completed.
func insertProgress(processed, total int) int {
	if total <= 0 {
		return 25
	}
	p := 25 + int(math.Round(float64(processed)/float64(total)*70))
	return min(p, 95)
}

func completionMessage(imported, total, failed int) string {
	msg := fmt.Sprintf("Imported %d of %d rows", imported, total)
	if failed > 0 {
		msg += fmt.Sprintf(" (%d errors)", failed)
	}
	return msg
}

func rowErrorText(err error) string {
	var we *utils.StoreWriteError
	if errors.As(err, &we) && we.Err != nil {
		return we.Err.Error()
	}
	return err.Error()
}

func (e *Engine) fail(jobID string, err error) {
	msg := err.Error()
	if msg == "" {
		msg = "Import failed"
	}
	e.tracker.Update(jobID, func(j *models.ImportJob) {
		j.Stage = models.ImportStageError
		j.Message = msg
		j.ErrorDetails = []string{msg}
	})
}

func (e *Engine) runHooks(ctx context.Context, job models.ImportJob, log *logrus.Entry) {
	if len(e.hooks) == 0 {
		return
	}
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()
	for _, h := range e.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("import finish hook panicked")
				}
			}()
			h(hookCtx, job)
		}()
	}
}
