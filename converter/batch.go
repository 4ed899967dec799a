package converter

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"archconv/contracts"
	"archconv/files_manager"
	"archconv/logging"
)

// FailurePreviewLimit bounds the failure messages repeated in the summary.
const FailurePreviewLimit = 20

type BatchOptions struct {
	Input     string
	Output    string
	Recursive bool
	OutExt    string
	Suffix    string
	Overwrite bool
	// Jobs <= 0 uses every CPU.
	Jobs int
}

type Summary struct {
	// RunID identifies the run in logs and the protocol.
	RunID     uuid.UUID
	Total     int
	Converted int
	Skipped   int
	Failed    int
	// Outcomes are in discovery order.
	Outcomes []contracts.Outcome
	Elapsed  time.Duration
}

// Err is non-nil when at least one file failed.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", s.Failed, s.Total)
}

// FailurePreview returns up to n "input: error" lines.
func (s Summary) FailurePreview(n int) []string {
	var out []string
	for _, o := range s.Outcomes {
		if o.Status != contracts.StatusFailed {
			continue
		}
		if len(out) == n {
			break
		}
		out = append(out, fmt.Sprintf("%s: %v", o.Job.Input, o.Err))
	}
	return out
}

type batchTask struct {
	index   int
	job     contracts.BatchJob
	planErr error
}

type batchResult struct {
	index   int
	outcome contracts.Outcome
}

// RunBatch converts every supported file under opts.Input. Errors returned
// directly are run-level (bad extension, unreadable input root); per-file
// failures are only recorded in the Summary, and every file is attempted.
func RunBatch(conv contracts.Converter, opts BatchOptions, log logging.Logger) (Summary, error) {
	if log == nil {
		log = logging.Nop{}
	}
	start := time.Now()
	runID := uuid.New()
	log = log.With(logging.String("run", runID.String()))

	outExt, err := files_manager.NormalizeOutExt(opts.OutExt)
	if err != nil {
		return Summary{}, err
	}
	files, err := files_manager.Discover(opts.Input, opts.Recursive)
	if err != nil {
		return Summary{}, fmt.Errorf("scan input directory: %w", err)
	}

	summary := Summary{RunID: runID, Total: len(files), Outcomes: make([]contracts.Outcome, len(files))}
	if len(files) == 0 {
		log.Warn("no supported images found", logging.String("input", opts.Input))
		return summary, nil
	}

	numWorkers := opts.Jobs
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, len(files))
	log.Info("starting batch",
		logging.Int("files", len(files)),
		logging.Int("workers", numWorkers),
	)

	jobs, planErrs := files_manager.PlanJobs(files, files_manager.JobOptions{
		InputRoot:  opts.Input,
		OutputRoot: opts.Output,
		Recursive:  opts.Recursive,
		OutExt:     outExt,
		Suffix:     opts.Suffix,
	})

	taskChan := make(chan batchTask)
	resultChan := make(chan batchResult, numWorkers)
	wg := &sync.WaitGroup{}
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go batchWorker(conv, opts.Overwrite, log, taskChan, resultChan, wg)
	}

	done := make(chan struct{})
	go func() {
		for r := range resultChan {
			summary.Outcomes[r.index] = r.outcome
			switch r.outcome.Status {
			case contracts.StatusConverted:
				summary.Converted++
			case contracts.StatusSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
		}
		close(done)
	}()

	for i, job := range jobs {
		taskChan <- batchTask{index: i, job: job, planErr: planErrs[i]}
	}
	close(taskChan)

	wg.Wait()
	close(resultChan)
	<-done

	summary.Elapsed = time.Since(start)
	log.Info("batch finished",
		logging.Int("total", summary.Total),
		logging.Int("converted", summary.Converted),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.String("elapsed", summary.Elapsed.Round(time.Millisecond).String()),
	)
	if summary.Failed > 0 {
		for _, line := range summary.FailurePreview(FailurePreviewLimit) {
			log.Error(line)
		}
		if summary.Failed > FailurePreviewLimit {
			log.Error(fmt.Sprintf("... and %d more failures", summary.Failed-FailurePreviewLimit))
		}
	}
	return summary, nil
}

func batchWorker(conv contracts.Converter, overwrite bool, log logging.Logger,
	taskChan <-chan batchTask, resultChan chan<- batchResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range taskChan {
		resultChan <- batchResult{index: task.index, outcome: runJob(conv, overwrite, log, task.job, task.planErr)}
	}
}

// runJob never panics the pool: a panicking converter is recorded as a
// failure of that file.
func runJob(conv contracts.Converter, overwrite bool, log logging.Logger, job contracts.BatchJob, planErr error) (out contracts.Outcome) {
	start := time.Now()
	out.Job = job
	defer func() {
		if r := recover(); r != nil {
			out.Status = contracts.StatusFailed
			out.Err = fmt.Errorf("panic: %v", r)
		}
		out.Elapsed = time.Since(start)
		if out.Status == contracts.StatusFailed {
			log.Warn("conversion failed", logging.String("input", job.Input), logging.Err(out.Err))
		}
	}()

	if planErr != nil {
		out.Status, out.Err = contracts.StatusFailed, planErr
		return out
	}
	if !overwrite && files_manager.Exists(job.Output) {
		log.Info("skipping existing output", logging.String("output", job.Output))
		out.Status = contracts.StatusSkipped
		return out
	}
	if err := files_manager.EnsureParentDir(job.Output); err != nil {
		out.Status, out.Err = contracts.StatusFailed, err
		return out
	}

	res, err := conv.Convert(job.Input, job.Output)
	if err != nil {
		out.Status, out.Err = contracts.StatusFailed, err
		return out
	}
	out.Status = contracts.StatusConverted
	out.Checksum = res.Checksum
	log.Debug("converted",
		logging.String("input", job.Input),
		logging.String("output", job.Output),
		logging.Int("width", res.Width),
		logging.Int("height", res.Height),
	)
	return out
}
