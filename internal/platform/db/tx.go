package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

// Transaction modes accepted by NewTransactor.
const (
	TxModeRequired   = "required"
	TxModeCompensate = "compensate"
)

// ErrTransactionsUnsupported is returned when a multi-document write is
// requested against a deployment without transaction support.
var ErrTransactionsUnsupported = apperr.Unavailable("La base de datos no soporta transacciones")

// Transactor runs a unit of work so that it either fully applies or leaves
// no trace. Repositories receive the context passed to fn and must use it
// for every operation.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether the unit of work is isolated by the database.
	Atomic() bool
}

// NewTransactor probes the deployment and returns the transactor matching
// its capabilities and the configured mode.
func NewTransactor(ctx context.Context, client *mongo.Client, mode string, logger zerolog.Logger) (Transactor, error) {
	ok, err := SupportsTransactions(ctx, client)
	if err != nil {
		return nil, err
	}
	if ok {
		return &MongoTransactor{client: client}, nil
	}
	switch mode {
	case TxModeCompensate:
		logger.Warn().Msg("mongo deployment has no transaction support, using compensating rollbacks")
		return NewCompensatingTransactor(logger), nil
	default:
		logger.Warn().Msg("mongo deployment has no transaction support, multi-document writes are disabled")
		return UnavailableTransactor{}, nil
	}
}

// SupportsTransactions reports whether the server is a replica set member
// or a mongos router.
func SupportsTransactions(ctx context.Context, client *mongo.Client) (bool, error) {
	var res bson.M
	admin := client.Database("admin")
	err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&res)
	if err != nil {
		// servers older than 4.4.2 only know isMaster
		if err2 := admin.RunCommand(ctx, bson.D{{Key: "isMaster", Value: 1}}).Decode(&res); err2 != nil {
			return false, fmt.Errorf("probe deployment: %w", err)
		}
	}
	return helloSupportsTransactions(res), nil
}

func helloSupportsTransactions(res bson.M) bool {
	if name, ok := res["setName"].(string); ok && name != "" {
		return true
	}
	msg, _ := res["msg"].(string)
	return msg == "isdbgrid"
}

// MongoTransactor wraps the unit of work in a server side transaction.
type MongoTransactor struct {
	client *mongo.Client
}

func (t *MongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (t *MongoTransactor) Atomic() bool { return true }

// UnavailableTransactor refuses every unit of work without touching storage.
type UnavailableTransactor struct{}

func (UnavailableTransactor) WithTransaction(context.Context, func(context.Context) error) error {
	return ErrTransactionsUnsupported
}

func (UnavailableTransactor) Atomic() bool { return false }

// CompensatingTransactor runs the unit of work directly and, on failure,
// replays the undo actions registered through OnRollback in reverse order.
// It is not isolated: concurrent readers may observe partial state.
type CompensatingTransactor struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func NewCompensatingTransactor(logger zerolog.Logger) *CompensatingTransactor {
	return &CompensatingTransactor{logger: logger, timeout: 15 * time.Second}
}

type undoKey struct{}

type undoLog struct {
	mu      sync.Mutex
	actions []func(ctx context.Context) error
}

// OnRollback registers an undo action for the surrounding compensating unit
// of work. Outside of one it does nothing.
func OnRollback(ctx context.Context, undo func(ctx context.Context) error) {
	log, ok := ctx.Value(undoKey{}).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	log.actions = append(log.actions, undo)
	log.mu.Unlock()
}

// Compensating reports whether ctx belongs to a compensating unit of work,
// so callers can skip snapshots that only an undo action would need.
func Compensating(ctx context.Context) bool {
	_, ok := ctx.Value(undoKey{}).(*undoLog)
	return ok
}

func (t *CompensatingTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	log := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, log))
	if err == nil {
		return nil
	}

	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	log.mu.Lock()
	actions := log.actions
	log.mu.Unlock()
	for i := len(actions) - 1; i >= 0; i-- {
		if uerr := actions[i](rbCtx); uerr != nil {
			t.logger.Error().Err(uerr).Int("step", i).Msg("compensating rollback step failed")
		}
	}
	return err
}

func (t *CompensatingTransactor) Atomic() bool { return false }
