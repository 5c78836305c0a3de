package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	postgresrepo "github.com/kirinyoku/rail-go/internal/repository/postgres"
	"github.com/kirinyoku/rail-go/internal/uow"
)

// stubTxRunner hands the statements straight to the scripted connection
// instead of opening a real transaction.
type stubTxRunner struct {
	db postgresrepo.DB
}

func (r stubTxRunner) RunTx(
	ctx context.Context,
	_ *pgx.TxOptions,
	fn func(ctx context.Context, tx postgresrepo.DB) error,
) error {
	return fn(ctx, r.db)
}

// scriptDB answers statements by SQL substring and records the order they
// arrived in.
type scriptDB struct {
	log      []string
	execErr  map[string]error
	queryRes map[string][][]any
	rowRes   map[string][]any
}

func (f *scriptDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.log = append(f.log, sql)

	for sub, err := range f.execErr {
		if strings.Contains(sql, sub) {
			return pgconn.CommandTag{}, err
		}
	}

	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (f *scriptDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.log = append(f.log, sql)

	for sub, res := range f.queryRes {
		if strings.Contains(sql, sub) {
			return &scriptRows{vals: res}, nil
		}
	}

	return &scriptRows{}, nil
}

func (f *scriptDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.log = append(f.log, sql)

	for sub, vals := range f.rowRes {
		if strings.Contains(sql, sub) {
			return scriptRow{vals: vals}
		}
	}

	return scriptRow{err: pgx.ErrNoRows}
}

func (f *scriptDB) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults {
	return nil
}

func (f *scriptDB) saw(sub string) int {
	for i, sql := range f.log {
		if strings.Contains(sql, sub) {
			return i
		}
	}
	return -1
}

type scriptRow struct {
	vals []any
	err  error
}

func (r scriptRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(dest, r.vals)
}

type scriptRows struct {
	vals [][]any
	pos  int
}

func (r *scriptRows) Close()                                       {}
func (r *scriptRows) Err() error                                   { return nil }
func (r *scriptRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *scriptRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *scriptRows) Values() ([]any, error)                       { return nil, nil }
func (r *scriptRows) RawValues() [][]byte                          { return nil }
func (r *scriptRows) Conn() *pgx.Conn                              { return nil }

func (r *scriptRows) Next() bool {
	if r.pos >= len(r.vals) {
		return false
	}
	r.pos++
	return true
}

func (r *scriptRows) Scan(dest ...any) error {
	return scanInto(dest, r.vals[r.pos-1])
}

func scanInto(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}

	for i := range dest {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = vals[i].(uuid.UUID)
		case *string:
			*d = vals[i].(string)
		case *bool:
			*d = vals[i].(bool)
		case *int:
			*d = vals[i].(int)
		case *time.Time:
			*d = vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}

	return nil
}

func newScriptedService(db *scriptDB) *Service {
	return &Service{
		store: postgresrepo.NewStore(nil),
		uow:   uow.NewUoW(stubTxRunner{db: db}),
	}
}

func TestDeleteTrain_RemovesSchedules(t *testing.T) {
	trainID := uuid.New()
	scheduleID := uuid.New()
	wagonID := uuid.New()

	db := &scriptDB{
		rowRes: map[string][]any{
			"EXISTS": {false},
		},
		queryRes: map[string][][]any{
			"DELETE FROM schedules WHERE train_id": {{scheduleID}},
			"FROM wagons": {{wagonID, trainID, "W1", 24, time.Now()}},
		},
	}

	err := newScriptedService(db).DeleteTrain(context.Background(), trainID)
	require.NoError(t, err)

	schedules := db.saw("DELETE FROM schedules WHERE train_id")
	train := db.saw("DELETE FROM trains")

	require.NotEqual(t, -1, schedules, "schedules were never deleted")
	require.NotEqual(t, -1, train)
	assert.Less(t, schedules, train, "schedules must go before the train")
	assert.NotEqual(t, -1, db.saw("DELETE FROM wagons"))
}

func TestDeleteTrain_BookedTrainStays(t *testing.T) {
	db := &scriptDB{
		rowRes: map[string][]any{
			"EXISTS": {true},
		},
	}

	err := newScriptedService(db).DeleteTrain(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrInUse)
	assert.Equal(t, -1, db.saw("DELETE FROM schedules"), "no deletes for a booked train")
	assert.Equal(t, -1, db.saw("DELETE FROM trains"))
}

func TestDeleteTrain_ConcurrentScheduleRef(t *testing.T) {
	db := &scriptDB{
		rowRes: map[string][]any{
			"EXISTS": {false},
		},
		execErr: map[string]error{
			"DELETE FROM trains": &pgconn.PgError{Code: "23503"},
		},
	}

	err := newScriptedService(db).DeleteTrain(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrInUse)
}
