// Package dispatch performs the side effects of a confirmed sighting: a
// console notification and, when a repository is configured, one durable
// write with a JPEG snapshot.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"agrovision/internal/logger"
	"agrovision/internal/model"
	"agrovision/internal/repository"
)

// Snapshot is an owned copy of the frame a confirmation happened on. The
// dispatcher closes every snapshot it receives exactly once.
type Snapshot interface {
	Encode() ([]byte, error)
	Close() error
}

// Confirmation is a confirmed marker ready for dispatch.
type Confirmation struct {
	MarkerID int
	At       time.Time
	Snapshot Snapshot // may be nil
}

// Notifier is told about every confirmation, e.g. live preview viewers.
type Notifier interface {
	NotifySighting(markerID int, at time.Time)
}

// Options tunes a Dispatcher.
type Options struct {
	Out          io.Writer // console notifications, stdout when nil
	QueueSize    int
	WriteTimeout time.Duration
	RunID        string
	Notifiers    []Notifier
}

// Stats counts dispatch outcomes.
type Stats struct {
	Notified  uint64
	Persisted uint64
	Failed    uint64
	Dropped   uint64
}

type writeJob struct {
	confirmation Confirmation
}

// Dispatcher fans a confirmation out to the console, notifiers and the
// repository. Writes run on a single background worker so a slow store
// never stalls the control loop, and confirmation order is kept.
type Dispatcher struct {
	logger       *logger.Logger
	repo         repository.SightingRepository
	out          io.Writer
	runID        string
	writeTimeout time.Duration
	notifiers    []Notifier

	queue     chan writeJob
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool

	notified  atomic.Uint64
	persisted atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a dispatcher. A nil repo disables persistence.
func New(logger *logger.Logger, repo repository.SightingRepository, opts Options) *Dispatcher {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		logger:       logger,
		repo:         repo,
		out:          opts.Out,
		runID:        opts.RunID,
		writeTimeout: opts.WriteTimeout,
		notifiers:    opts.Notifiers,
		ctx:          ctx,
		cancel:       cancel,
	}

	if repo != nil {
		d.queue = make(chan writeJob, opts.QueueSize)
		d.wg.Add(1)
		go d.writer()
		d.logger.Info("Persistence enabled (queue %d, write timeout %v)", opts.QueueSize, opts.WriteTimeout)
	} else {
		d.logger.Info("Persistence disabled - sightings are only reported")
	}

	return d
}

// Persistent reports whether confirmations are written to a repository.
func (d *Dispatcher) Persistent() bool {
	return d.repo != nil
}

// Dispatch handles the confirmations of one frame in ascending marker order.
// It never blocks on storage.
func (d *Dispatcher) Dispatch(confirmations []Confirmation) {
	sort.SliceStable(confirmations, func(i, j int) bool {
		return confirmations[i].MarkerID < confirmations[j].MarkerID
	})

	for _, c := range confirmations {
		d.notify(c)
		d.enqueue(c)
	}
}

func (d *Dispatcher) notify(c Confirmation) {
	if _, err := fmt.Fprintf(d.out, "Animal %d detected\n", c.MarkerID); err != nil {
		d.logger.Warning("Failed to print notification for marker %d: %v", c.MarkerID, err)
	}
	d.logger.Info("Animal %d detected at %s", c.MarkerID, c.At.Format(time.RFC3339))

	for _, n := range d.notifiers {
		n.NotifySighting(c.MarkerID, c.At)
	}
	d.notified.Add(1)
}

func (d *Dispatcher) enqueue(c Confirmation) {
	if d.repo == nil {
		closeSnapshot(c.Snapshot)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.dropped.Add(1)
		d.logger.Warning("Dispatcher closed - sighting of marker %d not persisted", c.MarkerID)
		closeSnapshot(c.Snapshot)
		return
	}

	select {
	case d.queue <- writeJob{confirmation: c}:
	default:
		d.dropped.Add(1)
		d.logger.Error("Persistence queue full - sighting of marker %d dropped", c.MarkerID)
		closeSnapshot(c.Snapshot)
	}
}

// writer drains the queue one job at a time.
func (d *Dispatcher) writer() {
	defer d.wg.Done()

	for job := range d.queue {
		if err := d.persist(job.confirmation); err != nil {
			d.failed.Add(1)
			d.logger.Error("Failed to persist sighting of marker %d: %v", job.confirmation.MarkerID, err)
			continue
		}
		d.persisted.Add(1)
	}
}

func (d *Dispatcher) persist(c Confirmation) error {
	defer closeSnapshot(c.Snapshot)

	var snapshot []byte
	if c.Snapshot != nil {
		encoded, err := c.Snapshot.Encode()
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		snapshot = encoded
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.writeTimeout)
	defer cancel()

	sighting := &model.Sighting{
		RunID:      d.runID,
		MarkerID:   c.MarkerID,
		DetectedAt: c.At,
		Snapshot:   snapshot,
	}
	id, err := d.repo.Insert(ctx, sighting)
	if err != nil {
		return err
	}

	d.logger.Debug("Stored sighting %d for marker %d (%d bytes)", id, c.MarkerID, len(snapshot))
	return nil
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Notified:  d.notified.Load(),
		Persisted: d.persisted.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Close stops accepting work and waits for queued writes. If ctx expires
// first, in-flight writes are canceled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		if d.queue != nil {
			close(d.queue)
		}
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func closeSnapshot(s Snapshot) {
	if s != nil {
		s.Close()
	}
}
