package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/annotation"
)

//State is the pipeline's lifecycle phase
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateSampling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateSampling:
		return "sampling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

//ErrAnalysisRunning is returned when Run is called while a run is in flight.
//The second invocation is a no-op, never queued.
var ErrAnalysisRunning = errors.New("analysis already in progress")

//ErrNotSeekable is returned when the source cannot deliver exact frames
var ErrNotSeekable = errors.New("source is not directly seekable")

//ErrNoSchema is returned when analysis is requested before a schema or any
//annotations are loaded
var ErrNoSchema = errors.New("no annotation schema loaded")

//Sampler is the frame-sampling capability. SampleFrame must return the
//exact decoded frame at given time - the caller owns the returned Mat.
//There is one playback position, so the pipeline never overlaps calls.
type Sampler interface {
	SampleFrame(seconds float64) (gocv.Mat, error)
	Seekable() bool
}

//Result maps a tag name to the derived count for each of its windows, in
//ascending start-key order
type Result map[string][]int

//Status is a point-in-time view of the pipeline for the API
type Status struct {
	State    string `json:"state"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
}

//Pipeline samples one frame per annotated window, runs the detector on it
//and aggregates the derived counts per tag. Runs are strictly sequential:
//one window at a time, sampling fully completed before detection, no
//mid-run cancel. The detector is constructed on first use and kept for the
//process lifetime; a failed construction is retried on the next run.
type Pipeline struct {
	logger      *slog.Logger
	store       *annotation.Store
	classifier  *Classifier
	newDetector func() (Detector, error)

	mu       sync.Mutex
	detector Detector
	running  bool
	state    State
	message  string
	progress int
	total    int
	results  Result
}

//NewPipeline wires the pipeline to its store, derivation rule and detector
//factory. newDetector is invoked at most once per successful construction.
func NewPipeline(store *annotation.Store, classifier *Classifier, newDetector func() (Detector, error), logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:      logger,
		store:       store,
		classifier:  classifier,
		newDetector: newDetector,
		state:       StateIdle,
	}
}

//Run executes one full analysis pass against the store's current snapshot.
//Returns ErrAnalysisRunning if a pass is already in flight and
//ErrNotSeekable for sources that cannot honor the exact-frame contract.
//On any sampling or detection failure the run stops, partial results are
//discarded and the error is returned.
func (p *Pipeline) Run(sampler Sampler) error {
	if sampler == nil || !sampler.Seekable() {
		return ErrNotSeekable
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.Warn("analysis already running, ignoring request")
		return ErrAnalysisRunning
	}
	p.running = true
	p.setLocked(StatePreparing, "Preparing...", 0, 0)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	rows := make([]annotation.Record, 0)
	for _, r := range p.store.Snapshot() {
		if !math.IsNaN(r.StartKey) && !math.IsInf(r.StartKey, 0) {
			rows = append(rows, r)
		}
	}

	if len(rows) == 0 {
		p.publish(Result{}, "No annotated windows found.")
		return nil
	}

	det, err := p.ensureDetector()
	if err != nil {
		p.fail(fmt.Sprintf("Detector failed to load: %v", err))
		return err
	}

	p.logger.Info("starting analysis", "windows", len(rows))
	started := time.Now()

	results := make(Result)
	for i, rec := range rows {
		p.set(StateSampling, fmt.Sprintf("Analyzing %d/%d...", i+1, len(rows)), i+1, len(rows))

		frame, err := sampler.SampleFrame(rec.StartKey)
		if err != nil {
			p.fail(fmt.Sprintf("Analysis failed: %v", err))
			return fmt.Errorf("sample frame at %.3fs: %w", rec.StartKey, err)
		}

		dets, derr := det.Detect(frame)
		frame.Close()
		if derr != nil {
			p.fail(fmt.Sprintf("Analysis failed: %v", derr))
			return fmt.Errorf("detect at %.3fs: %w", rec.StartKey, derr)
		}

		results[rec.TagName] = append(results[rec.TagName], p.classifier.CountDefendersInFront(dets))
	}

	p.publish(results, "Done.")
	p.logger.Info("analysis complete", "windows", len(rows), "tags", len(results), "elapsed", time.Since(started))
	return nil
}

//ensureDetector returns the memoized detector, constructing it on first use.
//A construction error leaves the memo empty so a later run can retry.
func (p *Pipeline) ensureDetector() (Detector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detector != nil {
		return p.detector, nil
	}
	det, err := p.newDetector()
	if err != nil {
		return nil, err
	}
	p.detector = det
	return det, nil
}

func (p *Pipeline) set(state State, message string, progress, total int) {
	p.mu.Lock()
	p.setLocked(state, message, progress, total)
	p.mu.Unlock()
}

func (p *Pipeline) setLocked(state State, message string, progress, total int) {
	p.state = state
	p.message = message
	p.progress = progress
	p.total = total
}

//publish replaces the previous run's results wholesale
func (p *Pipeline) publish(results Result, message string) {
	p.mu.Lock()
	p.results = results
	p.setLocked(StateDone, message, p.total, p.total)
	p.mu.Unlock()
}

func (p *Pipeline) fail(message string) {
	p.mu.Lock()
	p.setLocked(StateFailed, message, p.progress, p.total)
	p.mu.Unlock()
}

//Status reports the current phase and human-readable message
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:    p.state.String(),
		Message:  p.message,
		Progress: p.progress,
		Total:    p.total,
	}
}

//Results returns a copy of the last completed run's mapping, or nil when no
//run has completed
func (p *Pipeline) Results() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.results == nil {
		return nil
	}
	out := make(Result, len(p.results))
	for tag, counts := range p.results {
		out[tag] = append([]int(nil), counts...)
	}
	return out
}

//ClearResults drops the held results and returns the pipeline to idle
func (p *Pipeline) ClearResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = nil
	p.setLocked(StateIdle, "", 0, 0)
}

//ExportJSON renders the held results as a pretty-printed tag -> counts object
func (p *Pipeline) ExportJSON() ([]byte, error) {
	res := p.Results()
	if res == nil {
		res = Result{}
	}
	return json.MarshalIndent(res, "", "  ")
}

//ExportFileName returns the conventional analysis export file name
func ExportFileName() string {
	return fmt.Sprintf("analysis_%d.json", time.Now().UnixMilli())
}
