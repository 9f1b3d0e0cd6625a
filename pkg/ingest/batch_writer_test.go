package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/japaniel/lexicard/pkg/store/memstore"
	"github.com/japaniel/lexicard/pkg/store/sqlstore"
	_ "github.com/mattn/go-sqlite3"
)

func entryRow(head string, dictKey int64) Row {
	return Row{Table: store.TableDictCC, Entry: &lexicon.Entry{Head: head, DictionaryKey: dictKey}}
}

func countHeads(t *testing.T, st store.Store, heads []string, dictKey int64) int {
	t.Helper()
	got, err := st.QueryEntries(context.Background(), store.TableDictCC, store.IndexHead, heads, []int64{dictKey})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return len(got)
}

func TestBatchWriterTransactions(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	st, err := sqlstore.New(db)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	defer st.Close()

	bw := NewBatchWriter(st, 2, 0)
	if err := bw.Submit(entryRow("A", 1), entryRow("B", 1)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Close and wait for pending batches to be committed. Use a timeout to avoid hanging tests.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}

	if n := countHeads(t, st, []string{"A", "B"}, 1); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestBatchWriterRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	st, err := sqlstore.New(db)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	defer st.Close()

	bw := NewBatchWriter(st, 2, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// Batch of 2: the empty head fails, the whole batch rolls back.
	bw.Submit(entryRow("C", 1), entryRow("", 1))
	if err := bw.Close(); err == nil {
		t.Fatal("expected Close to return the batch error")
	}

	select {
	case err := <-errCh:
		var se *lexicon.StoreError
		if !errors.As(err, &se) {
			t.Fatalf("expected StoreError, got %v", err)
		}
	default:
		t.Fatal("expected OnError to be called")
	}

	if n := countHeads(t, st, []string{"C"}, 1); n != 0 {
		t.Fatalf("expected 0 rows (rollback), got %d", n)
	}
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	st := memstore.New()
	bw := NewBatchWriter(st, 5, 0)
	var heads []string
	for i := 0; i < 12; i++ {
		h := fmt.Sprintf("w%d", i)
		heads = append(heads, h)
		if err := bw.Submit(entryRow(h, 1)); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if n := countHeads(t, st, heads, 1); n != 12 {
		t.Fatalf("expected 12 rows, got %d", n)
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	st := memstore.New()
	bw := NewBatchWriter(st, 10, 50*time.Millisecond)
	defer bw.Close()
	if err := bw.Submit(entryRow("Zeit", 1)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// wait for flush interval
	deadline := time.Now().Add(time.Second)
	for countHeads(t, st, []string{"Zeit"}, 1) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("row was not flushed by the interval")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBatchWriterMixedRows(t *testing.T) {
	st := memstore.New()
	bw := NewBatchWriter(st, 3, 0)
	err := bw.Submit(
		Row{Table: store.TableYomitanTerms, Entry: &lexicon.Entry{Head: "猫", DictionaryKey: 1}},
		Row{Table: store.TableYomitanTags, Record: &lexicon.Record{Key: "n", DictionaryKey: 1}},
		Row{Table: store.TableYomitanTerms, Entry: &lexicon.Entry{Head: "犬", DictionaryKey: 1}},
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ctx := context.Background()
	terms, _ := st.QueryEntries(ctx, store.TableYomitanTerms, store.IndexHead, []string{"猫", "犬"}, []int64{1})
	tags, _ := st.QueryRecords(ctx, store.TableYomitanTags, 1, nil)
	if len(terms) != 2 || len(tags) != 1 {
		t.Fatalf("got %d terms and %d tags", len(terms), len(tags))
	}
}

// blockingStore blocks InsertEntries until release is closed.
type blockingStore struct {
	*memstore.Store
	release chan struct{}
}

func (b *blockingStore) InsertEntries(ctx context.Context, t store.Table, es []lexicon.Entry) error {
	<-b.release
	return b.Store.InsertEntries(ctx, t, es)
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	st := &blockingStore{Store: memstore.New(), release: make(chan struct{})}
	bw := NewBatchWriter(st, 1, 0)
	errCh := make(chan error, 4)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// First batch blocks the committer, the next two fill commitCh.
	for _, h := range []string{"a", "b", "c"} {
		if err := bw.Submit(entryRow(h, 1)); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	// Cancel the writer's context so further batches cannot be queued.
	bw.cancel()
	if err := bw.Submit(entryRow("d", 1)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	close(st.release)

	select {
	case e := <-errCh:
		if e == nil || !strings.Contains(e.Error(), "dropping batch") {
			t.Fatalf("unexpected OnError value: %v", e)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}
	if err := bw.Close(); err == nil {
		t.Fatal("expected Close to report the dropped batch")
	}
}

func TestBatchWriterClosed(t *testing.T) {
	bw := NewBatchWriter(memstore.New(), 1, 0)
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bw.Submit(entryRow("x", 1)); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed on second close, got %v", err)
	}
}
