package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"
	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/ingest"
	"github.com/professorSergio12/Stock-Broker/models"
)

const progressInterval = 500 * time.Millisecond

type importCmd struct {
	file      string
	table     string
	batchSize int
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a brokerage Excel export into the record store" }
func (*importCmd) Usage() string {
	return `brokerctl import -f <file.xlsx> [-table <name>] [-batch <n>]

  Decodes the first sheet, maps each row to a transaction and inserts them in
  batches, printing progress until the import finishes.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "Excel workbook to import (.xlsx or .xlsm).")
	f.StringVar(&c.table, "table", "", "Record table. Defaults to RECORD_TABLE.")
	f.IntVar(&c.batchSize, "batch", 0, "Rows per insert batch. Defaults to IMPORT_BATCH_SIZE.")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -f is required.")
		return subcommands.ExitUsageError
	}
	if ingest.IsLegacyWorkbook(c.file, "") {
		fmt.Fprintln(os.Stderr, "Error: legacy .xls and .xlsb workbooks are not supported; save the file as .xlsx.")
		return subcommands.ExitUsageError
	}
	if !ingest.IsSpreadsheet(c.file, "") {
		fmt.Fprintln(os.Stderr, "Error: only .xlsx and .xlsm files are supported.")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	st, table, closeFn, err := openStore(ctx, c.table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening record store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	batch := c.batchSize
	if batch <= 0 {
		batch = config.ImportBatchSize()
	}
	engine := ingest.NewEngine(ingest.EngineConfig{
		Store:     st,
		Table:     table,
		BatchSize: batch,
		Logger:    config.GetLogger(),
	})
	task, err := engine.Submit(ctx, ingest.Upload{
		FileName: filepath.Base(c.file),
		Size:     int64(len(data)),
		Data:     data,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	job := watchImport(ctx, os.Stdout, engine.Tracker(), task)
	printImportResult(os.Stdout, job)
	if job.Stage == models.ImportStageError {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// watchImport prints each progress change until the task finishes. An
// interrupt cancels the import before its next batch.
func watchImport(ctx context.Context, w io.Writer, tracker *ingest.Tracker, task *ingest.Task) models.ImportJob {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	last := -1
	var lastStage models.ImportStage
	for {
		select {
		case <-task.Done():
			job, _ := task.Wait()
			return job
		case <-ctx.Done():
			task.Cancel()
			job, _ := task.Wait()
			return job
		case <-ticker.C:
			job, ok := tracker.Get(task.ID)
			if !ok || (job.Progress == last && job.Stage == lastStage) {
				continue
			}
			last, lastStage = job.Progress, job.Stage
			fmt.Fprintf(w, "[%3d%%] %-9s %s\n", job.Progress, job.Stage, job.Message)
		}
	}
}

func printImportResult(w io.Writer, job models.ImportJob) {
	fmt.Fprintf(w, "import %s: %s\n", job.ID, job.Stage)
	fmt.Fprintf(w, "  %s\n", job.Message)
	fmt.Fprintf(w, "  rows: %d total, %d valid, %d imported, %d errors\n",
		job.TotalRows, job.ValidRows, job.Imported, job.Errors)
	if len(job.UnknownColumns) > 0 {
		fmt.Fprintf(w, "  unknown columns: %v\n", job.UnknownColumns)
	}
	for _, d := range job.ErrorDetails {
		fmt.Fprintf(w, "  - %s\n", d)
	}
}
