package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/store"
)

// Row is one pending write: an entry or a record destined for Table.
type Row struct {
	Table  store.Table
	Entry  *lexicon.Entry
	Record *lexicon.Record
}

// BatchWriter buffers rows and flushes them to the store in batches. Rows
// of one table within a batch are written with a single insert call.
type BatchWriter struct {
	mu          sync.Mutex
	buf         []Row
	cap         int
	flushTicker *time.Ticker
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	commitCh chan []Row
	st       store.Store
	OnError  func(error)

	// lastErr stores the first asynchronous error seen by the writer. Protected by errMu.
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter creates a new BatchWriter.
// st: the store rows are written to.
// bufferSize: flush when buffer reaches this size.
// flushInterval: flush after this duration (0 to disable).
func NewBatchWriter(st store.Store, bufferSize int, flushInterval time.Duration) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 500
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]Row, 0, bufferSize),
		cap:      bufferSize,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []Row, 2), // Buffer a couple of batches
		st:       st,
	}

	bw.wg.Add(1)
	go bw.committer()

	if flushInterval > 0 {
		bw.flushTicker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.loop()
	}
	return bw
}

// Submit enqueues rows.
func (bw *BatchWriter) Submit(rows ...Row) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	for _, r := range rows {
		bw.buf = append(bw.buf, r)
		if len(bw.buf) >= bw.cap {
			bw.flushLocked()
		}
	}
	return nil
}

// Err returns the first asynchronous write error, if any.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

func (bw *BatchWriter) recordErr(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

// flushLocked assumes bw.mu is held.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]Row, 0, bw.cap)

	// Blocking here while holding the lock propagates backpressure to Submit.
	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.recordErr(fmt.Errorf("batch writer: dropping batch of %d rows due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		// Once a batch failed the import is aborted; later batches are discarded.
		if bw.Err() != nil {
			continue
		}
		if err := bw.executeBatch(batch); err != nil {
			bw.recordErr(err)
		}
	}
}

func (bw *BatchWriter) executeBatch(batch []Row) error {
	// Use background context for flushing to avoid "context canceled" if bw is closing.
	ctx := context.Background()

	var order []store.Table
	entries := map[store.Table][]lexicon.Entry{}
	records := map[store.Table][]lexicon.Record{}
	for _, r := range batch {
		if _, ok := entries[r.Table]; !ok {
			if _, ok := records[r.Table]; !ok {
				order = append(order, r.Table)
			}
		}
		switch {
		case r.Entry != nil:
			entries[r.Table] = append(entries[r.Table], *r.Entry)
		case r.Record != nil:
			records[r.Table] = append(records[r.Table], *r.Record)
		}
	}
	for _, t := range order {
		if es := entries[t]; len(es) > 0 {
			if err := bw.st.InsertEntries(ctx, t, es); err != nil {
				return fmt.Errorf("failed to commit batch (%d entries): %w", len(es), err)
			}
		}
		if rs := records[t]; len(rs) > 0 {
			if err := bw.st.InsertRecords(ctx, t, rs); err != nil {
				return fmt.Errorf("failed to commit batch (%d records): %w", len(rs), err)
			}
		}
	}
	return nil
}

func (bw *BatchWriter) loop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.flushTicker.C:
			bw.mu.Lock()
			if len(bw.buf) > 0 {
				bw.flushLocked()
			}
			bw.mu.Unlock()
		}
	}
}

// Close stops accepting submissions and waits for pending writes to complete.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.flushTicker != nil {
		bw.flushTicker.Stop()
	}
	// flush remaining
	if len(bw.buf) > 0 {
		bw.flushLocked()
	}
	bw.mu.Unlock()

	bw.cancel()        // Stop ticker loop
	close(bw.commitCh) // Stop committer loop
	bw.wg.Wait()

	// Return any async error that was recorded during execution
	return bw.Err()
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
