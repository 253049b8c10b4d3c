package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/matheuslc/horacerta/libs/kafkax"
	"github.com/matheuslc/horacerta/services/notification-service/internal/inbox"
	"github.com/segmentio/kafka-go"
)

// fakeTx records statements instead of touching a database. Embedding pgx.Tx
// leaves unimplemented methods panicking, which is fine for these paths.
type fakeTx struct {
	pgx.Tx
	execs      []string
	execErr    error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if t.execErr != nil {
		return pgconn.CommandTag{}, t.execErr
	}
	t.execs = append(t.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Commit(context.Context) error { t.committed = true; return nil }

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeBeginner struct{ tx *fakeTx }

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) { return b.tx, nil }

func newTestConsumer(tx *fakeTx, handler Handler) *Consumer {
	return &Consumer{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pool:    &fakeBeginner{tx: tx},
		inbox:   inbox.NewRepository(),
		handler: handler,
	}
}

func TestProcessCommitsInboxWithHandlerWrites(t *testing.T) {
	tx := &fakeTx{}
	handled := 0
	c := newTestConsumer(tx, func(ctx context.Context, htx pgx.Tx, _ kafka.Message) error {
		handled++
		_, err := htx.Exec(ctx, "INSERT INTO notice_delivery_jobs ...")
		return err
	})

	meta := kafkax.EventMeta{EventID: "evt-1", EventType: "appointment.canceled"}
	if err := c.process(context.Background(), kafka.Message{}, meta); err != nil {
		t.Fatalf("process: %v", err)
	}
	if handled != 1 {
		t.Fatalf("handler calls = %d, want 1", handled)
	}
	if !tx.committed {
		t.Fatal("transaction should be committed")
	}
	if len(tx.execs) != 2 || !strings.Contains(tx.execs[0], "inbox_events") {
		t.Fatalf("inbox row and handler write should share the transaction, got %v", tx.execs)
	}
}

func TestProcessHandlerErrorRollsBackInboxRow(t *testing.T) {
	tx := &fakeTx{}
	boom := errors.New("insert failed")
	c := newTestConsumer(tx, func(context.Context, pgx.Tx, kafka.Message) error {
		return boom
	})

	meta := kafkax.EventMeta{EventID: "evt-1", EventType: "appointment.canceled"}
	if err := c.process(context.Background(), kafka.Message{}, meta); !errors.Is(err, boom) {
		t.Fatalf("process err = %v, want handler error", err)
	}
	if tx.committed {
		t.Fatal("transaction must not commit on handler error")
	}
	if !tx.rolledBack {
		t.Fatal("transaction should be rolled back so a redelivery retries the event")
	}

	// Redelivery after the failure gets a clean slate and succeeds.
	retryTx := &fakeTx{}
	retry := newTestConsumer(retryTx, func(context.Context, pgx.Tx, kafka.Message) error { return nil })
	if err := retry.process(context.Background(), kafka.Message{}, meta); err != nil {
		t.Fatalf("retry process: %v", err)
	}
	if !retryTx.committed {
		t.Fatal("retry should commit")
	}
}

func TestProcessSkipsDuplicateEvent(t *testing.T) {
	tx := &fakeTx{execErr: &pgconn.PgError{Code: "23505"}}
	c := newTestConsumer(tx, func(context.Context, pgx.Tx, kafka.Message) error {
		t.Fatal("handler must not run for a duplicate event")
		return nil
	})

	meta := kafkax.EventMeta{EventID: "evt-1", EventType: "appointment.canceled"}
	if err := c.process(context.Background(), kafka.Message{}, meta); err != nil {
		t.Fatalf("process: %v", err)
	}
	if tx.committed {
		t.Fatal("duplicate must not commit")
	}
}
