package jobmanager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/decode"
	"github.com/ColorsOutofSpace/net-check/pkg/parse"
	"github.com/ColorsOutofSpace/net-check/pkg/procrun"
)

// DefaultMaxJobs is the retained-job ceiling. Once exceeded, the oldest
// jobs by start time are evicted from the lookup table.
const DefaultMaxJobs = 50

// Sentinel errors surfaced to callers.
var (
	ErrUnknownCheck = fmt.Errorf("unknown check")
	ErrJobNotFound  = fmt.Errorf("job not found")
)

// Metrics receives job lifecycle notifications. Implementations must be
// safe for concurrent use. A nil Metrics is a no-op.
type Metrics interface {
	JobStarted(checkID string)
	JobFinished(checkID string, status Status)
}

// Config configures a Manager.
type Config struct {
	// MaxJobs is the retained-job ceiling. Default: DefaultMaxJobs.
	MaxJobs int

	// Logger receives lifecycle logs. Default: zap.NewNop().
	Logger *zap.Logger

	// Metrics receives lifecycle notifications. Optional.
	Metrics Metrics

	// Encoding overrides the console encoding used to decode process
	// output. Default: decode.ConsoleEncoding().
	Encoding encoding.Encoding
}

// EventFunc receives one stream event. It is invoked synchronously while
// the job record is locked, so it must return quickly and must not call
// back into the Manager.
type EventFunc func(Event)

// job is the live record. All fields below mu are guarded by it.
type job struct {
	mu        sync.Mutex
	snap      Snapshot
	events    []Event
	subs      map[int]EventFunc
	nextSub   int
	finalized bool
	timer     *time.Timer

	stdoutDec *decode.Stream
	stderrDec *decode.Stream
}

// Manager owns the job table. Construct one per process (or per test) with
// New; there is no ambient global instance.
type Manager struct {
	catalog *catalog.Catalog
	cfg     Config

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a Manager over the given catalog.
func New(cat *catalog.Catalog, cfg Config) *Manager {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = DefaultMaxJobs
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{catalog: cat, cfg: cfg, jobs: map[string]*job{}}
}

// CreateJob validates the check id, allocates a running job and starts
// execution asynchronously. The returned snapshot is the initial running
// state; progress is observed through Subscribe, not the return value.
func (m *Manager) CreateJob(checkID string, in Input) (Snapshot, error) {
	check, ok := m.catalog.Describe(checkID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownCheck, checkID)
	}
	inv, err := m.catalog.Build(checkID, catalog.Input{
		Target:         in.Target,
		Count:          in.Count,
		TimeoutSeconds: in.TimeoutSeconds,
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownCheck, checkID)
	}
	if in.TimeoutSeconds <= 0 {
		in.TimeoutSeconds = 10
	}

	j := &job{
		snap: Snapshot{
			ID:        uuid.New().String(),
			CheckID:   checkID,
			Title:     check.Title,
			Target:    in.Target,
			Status:    StatusRunning,
			StartedAt: time.Now().UTC(),
		},
		subs: map[int]EventFunc{},
	}

	enc := m.cfg.Encoding
	if enc == nil {
		enc = decode.ConsoleEncoding()
	}
	var opts []decode.Option
	if checkID == catalog.CheckWinsockCatalog {
		opts = append(opts, decode.WithMojibakeRecovery())
	}
	j.stdoutDec = decode.NewStream(enc, opts...)
	j.stderrDec = decode.NewStream(enc, opts...)

	m.mu.Lock()
	m.jobs[j.snap.ID] = j
	m.evictLocked()
	m.mu.Unlock()

	m.cfg.Logger.Info("job created",
		zap.String("job_id", j.snap.ID),
		zap.String("check_id", checkID),
		zap.String("target", in.Target))
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.JobStarted(checkID)
	}

	go m.execute(j, inv, in)

	return j.snapshotCopy(), nil
}

// GetJob returns the current snapshot for a job id.
func (m *Manager) GetJob(jobID string) (Snapshot, error) {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return j.snapshotCopy(), nil
}

// Snapshots returns snapshots of all retained jobs, oldest start first.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.Lock()
	all := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, j)
	}
	m.mu.Unlock()

	out := make([]Snapshot, 0, len(all))
	for _, j := range all {
		out = append(out, j.snapshotCopy())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.Before(out[k].StartedAt) })
	return out
}

// Subscribe replays every event already emitted for the job, in order, then
// delivers live events until unsubscribed. Replay and registration happen
// atomically with respect to the emitter: a subscriber always sees a
// gap-free prefix of the job's event sequence.
func (m *Manager) Subscribe(jobID string, fn EventFunc) (func(), error) {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	j.mu.Lock()
	for _, ev := range j.events {
		fn(ev)
	}
	id := j.nextSub
	j.nextSub++
	j.subs[id] = fn
	j.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			j.mu.Lock()
			delete(j.subs, id)
			j.mu.Unlock()
		})
	}, nil
}

// Await blocks until the job emits its complete event or ctx is done.
func (m *Manager) Await(ctx context.Context, jobID string) (Snapshot, error) {
	ch := make(chan Snapshot, 1)
	unsub, err := m.Subscribe(jobID, func(ev Event) {
		if ev.Kind == EventComplete && ev.Job != nil {
			select {
			case ch <- *ev.Job:
			default:
			}
		}
	})
	if err != nil {
		return Snapshot{}, err
	}
	defer unsub()

	select {
	case snap := <-ch:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// evictLocked trims the job table to the ceiling, oldest start time first.
// Eviction removes records from the lookup table only; subscribers already
// attached keep working against their own job reference.
func (m *Manager) evictLocked() {
	if len(m.jobs) <= m.cfg.MaxJobs {
		return
	}
	type aged struct {
		id      string
		started time.Time
	}
	all := make([]aged, 0, len(m.jobs))
	for id, j := range m.jobs {
		all = append(all, aged{id: id, started: j.snap.StartedAt})
	}
	sort.Slice(all, func(i, k int) bool { return all[i].started.Before(all[k].started) })
	for _, a := range all[:len(m.jobs)-m.cfg.MaxJobs] {
		delete(m.jobs, a.id)
		m.cfg.Logger.Debug("job evicted", zap.String("job_id", a.id))
	}
}

// execute drives one job to a terminal state. The timeout, natural-exit and
// spawn-error paths race to finalize; claimFinal arbitrates.
func (m *Manager) execute(j *job, inv catalog.Invocation, in Input) {
	m.emit(j, Event{
		Kind:        EventStart,
		CommandLine: inv.Display,
		Title:       j.snap.Title,
		Target:      j.snap.Target,
	})

	handle, err := procrun.Start(procrun.Spec{Path: inv.Path, Args: inv.Args},
		func(chunk []byte) { m.appendOutput(j, EventLog, j.stdoutDec, chunk) },
		func(chunk []byte) { m.appendOutput(j, EventError, j.stderrDec, chunk) },
	)
	if err != nil {
		m.emit(j, Event{Kind: EventError, Text: err.Error()})
		if !j.claimFinal() {
			return
		}
		m.finalize(j, StatusFailed, nil, execFailureResult())
		return
	}

	// The +1s margin absorbs process teardown beyond the tool's own timeout.
	deadline := time.Duration(in.TimeoutSeconds)*time.Second + time.Second
	if deadline < time.Second {
		deadline = time.Second
	}
	j.mu.Lock()
	j.timer = time.AfterFunc(deadline, func() { m.onTimeout(j, handle, in) })
	j.mu.Unlock()

	exitCode, killed, waitErr := handle.Wait()
	if killed {
		// The timeout path owns finalization.
		return
	}
	if !j.claimFinal() {
		return
	}

	m.flushDecoders(j)
	raw := j.rawOutput()

	if waitErr != nil {
		m.emit(j, Event{Kind: EventError, Text: waitErr.Error()})
		m.finalize(j, StatusFailed, nil, execFailureResult())
		return
	}

	res := parse.Parse(j.snap.CheckID, raw, exitCode)
	res.Structured[parse.FactTimedOut] = false

	status := StatusFailed
	if exitCode != nil && *exitCode == 0 {
		status = StatusCompleted
	}
	m.finalize(j, status, exitCode, res)
}

// execFailureResult is the terminal result when the process could not be
// spawned or waited on. It carries the same structured shape as the other
// finalization paths.
func execFailureResult() parse.Result {
	res := parse.Result{
		Structured: map[string]any{parse.FactTimedOut: false},
		Diagnosis:  []string{"The diagnostic command failed to execute."},
	}
	res.Evidence = parse.SynthesizeEvidence(res.Diagnosis, nil)
	return res
}

// onTimeout handles the deadline firing: flush, parse partial output, mark
// the timeout facts, kill the process and finalize as failed.
func (m *Manager) onTimeout(j *job, handle *procrun.Handle, in Input) {
	if !j.claimFinal() {
		return
	}

	m.flushDecoders(j)
	raw := j.rawOutput()

	res := parse.Parse(j.snap.CheckID, raw, nil)
	res.Structured[parse.FactTimedOut] = true
	res.Structured[parse.FactTimeoutSeconds] = in.TimeoutSeconds
	res.Diagnosis = append(res.Diagnosis,
		fmt.Sprintf("The check did not finish within %d seconds and was terminated.", in.TimeoutSeconds))

	m.emit(j, Event{Kind: EventError,
		Text: fmt.Sprintf("timed out after %d seconds", in.TimeoutSeconds)})

	handle.Kill()
	m.finalize(j, StatusFailed, nil, res)
}

// claimFinal returns true for exactly one caller per job. The winner runs
// finalization; losers back off without side effects on terminal state.
func (j *job) claimFinal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finalized {
		return false
	}
	j.finalized = true
	if j.timer != nil {
		j.timer.Stop()
	}
	return true
}

// finalize applies the parse result and emits the single complete event.
// Callers must have won claimFinal.
func (m *Manager) finalize(j *job, status Status, exitCode *int, res parse.Result) {
	now := time.Now().UTC()

	j.mu.Lock()
	j.snap.Status = status
	j.snap.EndedAt = &now
	j.snap.ExitCode = exitCode
	j.snap.Structured = res.Structured
	j.snap.Diagnosis = res.Diagnosis
	j.snap.Evidence = res.Evidence
	final := copySnapshot(j.snap)
	j.mu.Unlock()

	m.emit(j, Event{Kind: EventComplete, Job: &final})

	m.cfg.Logger.Info("job finished",
		zap.String("job_id", j.snap.ID),
		zap.String("check_id", j.snap.CheckID),
		zap.String("status", string(status)))
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.JobFinished(j.snap.CheckID, status)
	}
}

// appendOutput decodes a chunk, grows raw output and emits a log/error
// event. Decode and append happen under the job lock so the timeout path's
// flush never races a reader callback.
func (m *Manager) appendOutput(j *job, kind EventKind, dec *decode.Stream, chunk []byte) {
	j.mu.Lock()
	text := dec.Write(chunk)
	if text == "" {
		j.mu.Unlock()
		return
	}
	j.snap.RawOutput += text
	ev := m.stamp(j, Event{Kind: kind, Text: text})
	j.events = append(j.events, ev)
	for _, fn := range j.subs {
		fn(ev)
	}
	j.mu.Unlock()
}

// flushDecoders drains both stream decoders into raw output.
func (m *Manager) flushDecoders(j *job) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, flushed := range []string{j.stdoutDec.Flush(), j.stderrDec.Flush()} {
		if flushed != "" {
			j.snap.RawOutput += flushed
		}
	}
}

// emit appends an event to the job's log and notifies subscribers, all under
// the job lock so replay-then-live subscription never drops or duplicates.
func (m *Manager) emit(j *job, ev Event) {
	j.mu.Lock()
	ev = m.stamp(j, ev)
	j.events = append(j.events, ev)
	for _, fn := range j.subs {
		fn(ev)
	}
	j.mu.Unlock()
}

func (m *Manager) stamp(j *job, ev Event) Event {
	ev.JobID = j.snap.ID
	ev.TS = time.Now().UTC()
	return ev
}

func (j *job) snapshotCopy() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return copySnapshot(j.snap)
}

func (j *job) rawOutput() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.RawOutput
}

// copySnapshot deep-copies the mutable fields so callers cannot mutate the
// live record through a snapshot.
func copySnapshot(s Snapshot) Snapshot {
	out := s
	if s.Structured != nil {
		out.Structured = make(map[string]any, len(s.Structured))
		for k, v := range s.Structured {
			out.Structured[k] = v
		}
	}
	out.Diagnosis = append([]string(nil), s.Diagnosis...)
	out.Evidence = append([]string(nil), s.Evidence...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.ExitCode != nil {
		c := *s.ExitCode
		out.ExitCode = &c
	}
	return out
}
