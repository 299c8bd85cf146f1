package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/schema"
)

var (
	ErrJournalQueueFull      = errors.New("journal queue full")
	ErrJournalClosed         = errors.New("journal closed")
	ErrJournalNotStarted     = errors.New("journal not started")
	ErrJournalAlreadyStarted = errors.New("journal already started")
)

const (
	defaultSegmentMaxBytes int64 = 64 << 20
	defaultQueueSize             = 1024
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "trades"
)

var defaultSegmentMaxDuration = 24 * time.Hour

// JournalConfig controls trade journal behavior.
type JournalConfig struct {
	Dir                string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FilePrefix         string
	FlushInterval      time.Duration
	SyncInterval       time.Duration
}

// DefaultJournalConfig returns a baseline configuration for the journal.
func DefaultJournalConfig(dir string) JournalConfig {
	return JournalConfig{
		Dir:                dir,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
		FilePrefix:         defaultFilePrefix,
		FlushInterval:      time.Second,
	}
}

func (c JournalConfig) withDefaults() JournalConfig {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.SegmentMaxDuration == 0 {
		c.SegmentMaxDuration = defaultSegmentMaxDuration
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the configuration is usable.
func (c JournalConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid journal config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid journal config: SegmentMaxBytes must be > 0")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid journal config: QueueSize must be > 0")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid journal config: BufferSize must be > 0")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("invalid journal config: FlushInterval must be >= 0")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("invalid journal config: SyncInterval must be >= 0")
	}
	return nil
}

// Journal writes trades to append-only JSON-line segments from a
// buffered queue.
type Journal struct {
	cfg JournalConfig
	ch  chan schema.Trade
	wg  sync.WaitGroup
	err atomic.Value

	started uint32
	closed  uint32
}

// NewJournal creates a journal and ensures the target directory exists.
func NewJournal(cfg JournalConfig) (*Journal, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{
		cfg: cfg,
		ch:  make(chan schema.Trade, cfg.QueueSize),
	}, nil
}

// Start runs the journal loop in a new goroutine.
func (j *Journal) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&j.started, 0, 1) {
		return ErrJournalAlreadyStarted
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.run(ctx)
	}()
	return nil
}

// Close stops the journal and flushes any buffered data.
func (j *Journal) Close() error {
	if atomic.CompareAndSwapUint32(&j.closed, 0, 1) {
		close(j.ch)
	}
	j.wg.Wait()
	return j.Err()
}

// Err returns the first error observed by the journal, if any.
func (j *Journal) Err() error {
	if v := j.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues a trade without blocking.
func (j *Journal) TryAppend(t schema.Trade) error {
	if atomic.LoadUint32(&j.closed) != 0 {
		return ErrJournalClosed
	}
	if atomic.LoadUint32(&j.started) == 0 {
		return ErrJournalNotStarted
	}
	if err := j.Err(); err != nil {
		return err
	}
	select {
	case j.ch <- t:
		return nil
	default:
		return ErrJournalQueueFull
	}
}

func (j *Journal) run(ctx context.Context) {
	var (
		seg         *segment
		segID       uint64
		flushC      <-chan time.Time
		syncC       <-chan time.Time
		flushTicker *time.Ticker
		syncTicker  *time.Ticker
	)

	if j.cfg.FlushInterval > 0 {
		flushTicker = time.NewTicker(j.cfg.FlushInterval)
		flushC = flushTicker.C
	}
	if j.cfg.SyncInterval > 0 {
		syncTicker = time.NewTicker(j.cfg.SyncInterval)
		syncC = syncTicker.C
	}

	defer func() {
		if flushTicker != nil {
			flushTicker.Stop()
		}
		if syncTicker != nil {
			syncTicker.Stop()
		}
		if err := closeSegment(seg); err != nil && j.Err() == nil {
			j.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			j.drainNonBlocking(&seg, &segID)
			return
		case t, ok := <-j.ch:
			if !ok {
				return
			}
			if err := j.writeTrade(&seg, &segID, t); err != nil {
				j.setErr(err)
				return
			}
		case <-flushC:
			if err := flushSegment(seg); err != nil {
				j.setErr(err)
				return
			}
		case <-syncC:
			if err := syncSegment(seg); err != nil {
				j.setErr(err)
				return
			}
		}
	}
}

func (j *Journal) drainNonBlocking(seg **segment, segID *uint64) {
	for {
		select {
		case t, ok := <-j.ch:
			if !ok {
				return
			}
			if err := j.writeTrade(seg, segID, t); err != nil {
				j.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func (j *Journal) writeTrade(seg **segment, segID *uint64, t schema.Trade) error {
	line, err := json.Marshal(t)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	recordSize := int64(len(line) + 1)
	if j.shouldRotate(*seg, now, recordSize) {
		if err := closeSegment(*seg); err != nil {
			return err
		}
		opened, err := j.openSegment(segID, now)
		if err != nil {
			return err
		}
		*seg = opened
	}

	if _, err := (*seg).buf.Write(line); err != nil {
		return err
	}
	if err := (*seg).buf.WriteByte('\n'); err != nil {
		return err
	}
	(*seg).size += recordSize
	return nil
}

func (j *Journal) shouldRotate(seg *segment, now time.Time, nextSize int64) bool {
	if seg == nil {
		return true
	}
	if j.cfg.SegmentMaxBytes > 0 && seg.size+nextSize > j.cfg.SegmentMaxBytes {
		return true
	}
	if j.cfg.SegmentMaxDuration > 0 && now.Sub(seg.openedAt) >= j.cfg.SegmentMaxDuration {
		return true
	}
	return false
}

func (j *Journal) openSegment(segID *uint64, now time.Time) (*segment, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ts := now.Format("20060102-150405")
	for {
		*segID = *segID + 1
		name := fmt.Sprintf("%s-%s-%06d.ndjson", j.cfg.FilePrefix, ts, *segID)
		path := filepath.Join(j.cfg.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return nil, err
		}
		return &segment{
			file:     file,
			buf:      bufio.NewWriterSize(file, j.cfg.BufferSize),
			openedAt: now,
		}, nil
	}
}

func (j *Journal) setErr(err error) {
	if err == nil {
		return
	}
	if j.err.Load() != nil {
		return
	}
	j.err.Store(err)
}

func flushSegment(seg *segment) error {
	if seg == nil {
		return nil
	}
	return seg.buf.Flush()
}

func syncSegment(seg *segment) error {
	if seg == nil {
		return nil
	}
	if err := seg.buf.Flush(); err != nil {
		return err
	}
	return seg.file.Sync()
}

func closeSegment(seg *segment) error {
	if seg == nil {
		return nil
	}
	if err := seg.buf.Flush(); err != nil {
		_ = seg.file.Close()
		return err
	}
	if err := seg.file.Sync(); err != nil {
		_ = seg.file.Close()
		return err
	}
	return seg.file.Close()
}

type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}
