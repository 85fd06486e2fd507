package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/majalla/internal/model"
)

// Detector runs one detection over one document's text
type Detector interface {
	DetectCorrections(ctx context.Context, text string) (model.DetectionResult, error)
}

// Document is one unit of batch work
type Document struct {
	ID   string
	Path string
	Text string
}

// DetectJob runs detection for a single document
type DetectJob struct {
	Document Document
	Detector Detector
	Limiter  *Limiter
	Key      string
}

// Execute executes the detection job
func (j *DetectJob) Execute(ctx context.Context) Result {
	started := time.Now()

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Key); err != nil {
			return &DocumentResult{
				DocumentID: j.Document.ID,
				Err:        fmt.Errorf("rate limit: %w", err),
				Duration:   time.Since(started),
			}
		}
	}

	result, err := j.Detector.DetectCorrections(ctx, j.Document.Text)
	if err != nil {
		return &DocumentResult{
			DocumentID: j.Document.ID,
			Err:        err,
			Duration:   time.Since(started),
		}
	}
	return &DocumentResult{
		DocumentID: j.Document.ID,
		Result:     result,
		Duration:   time.Since(started),
	}
}

// DocumentResult represents the outcome for one document
type DocumentResult struct {
	DocumentID string
	Result     model.DetectionResult
	Err        error
	Duration   time.Duration
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Err
}

// BatchReport accumulates the outcome of a whole run
type BatchReport struct {
	RunID      string
	Results    map[string]model.DetectionResult
	Failures   map[string]error
	TotalCost  float64
	Processed  int
	Failed     int
	Batches    int
	Cancelled  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

func newBatchReport() *BatchReport {
	return &BatchReport{
		RunID:     uuid.NewString(),
		Results:   make(map[string]model.DetectionResult),
		Failures:  make(map[string]error),
		StartedAt: time.Now(),
	}
}

func (r *BatchReport) add(dr *DocumentResult) {
	if dr.Err != nil {
		r.Failures[dr.DocumentID] = dr.Err
		r.Failed++
		return
	}
	r.Results[dr.DocumentID] = dr.Result
	r.TotalCost += dr.Result.Provenance.Cost
	r.Processed++
}

// BatchProcessor processes documents in fixed-size batches. Documents in a
// batch run concurrently and the batch is awaited as a unit; a fixed delay
// separates consecutive batches.
type BatchProcessor struct {
	detector  Detector
	batchSize int
	delay     time.Duration
	limiter   *Limiter

	// LimiterKey selects the limiter bucket, normally the provider name
	LimiterKey string
	Logger     *slog.Logger
	// OnResult is called once per document, in document order, after its batch completes
	OnResult func(Document, *DocumentResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(detector Detector, batchSize int, delay time.Duration, limiter *Limiter) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &BatchProcessor{
		detector:   detector,
		batchSize:  batchSize,
		delay:      delay,
		limiter:    limiter,
		LimiterKey: "default",
	}
}

// NewBatchProcessorFromConfig wires a processor from the batch configuration
func NewBatchProcessorFromConfig(detector Detector, cfg model.BatchConfig) *BatchProcessor {
	return NewBatchProcessor(detector, cfg.Size, cfg.Delay, NewLimiter(cfg.RequestsPerSecond, cfg.Burst))
}

// ProcessDocuments runs detection over docs. A failing document is recorded
// and skipped. Cancelling ctx stops scheduling further batches; calls already
// in flight are allowed to complete.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []Document) *BatchReport {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := newBatchReport()
	defer func() { report.FinishedAt = time.Now() }()

	for start := 0; start < len(docs); start += b.batchSize {
		if ctx.Err() != nil {
			report.Cancelled = true
			logger.Warn("batch run cancelled", "run", report.RunID, "remaining", len(docs)-start)
			break
		}

		if start > 0 {
			if err := sleepCtx(ctx, b.delay); err != nil {
				report.Cancelled = true
				logger.Warn("batch run cancelled", "run", report.RunID, "remaining", len(docs)-start)
				break
			}
		}

		end := min(start+b.batchSize, len(docs))
		batch := docs[start:end]
		b.runBatch(ctx, batch, report)
		report.Batches++

		logger.Info("batch complete",
			"run", report.RunID,
			"batch", report.Batches,
			"documents", len(batch),
			"processed", report.Processed,
			"failed", report.Failed,
			"cost", report.TotalCost)
	}

	return report
}

func (b *BatchProcessor) runBatch(ctx context.Context, batch []Document, report *BatchReport) {
	jobs := make([]Job, len(batch))
	for i, doc := range batch {
		jobs[i] = &DetectJob{
			Document: doc,
			Detector: b.detector,
			Limiter:  b.limiter,
			Key:      b.LimiterKey,
		}
	}

	results := RunAll(context.WithoutCancel(ctx), len(jobs), jobs)
	for i, r := range results {
		dr := r.(*DocumentResult)
		report.add(dr)
		if b.OnResult != nil {
			b.OnResult(batch[i], dr)
		}
	}
}

// ReadPathList reads document paths from a file (one per line)
func ReadPathList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
