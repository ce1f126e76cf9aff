package db

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

func TestHealthHandler_Healthy(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler(fakePinger{}, UnavailableTransactor{})(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "healthy" || status.Transactions {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler(fakePinger{err: errors.New("no reachable servers")}, nil)(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHelloSupportsTransactions(t *testing.T) {
	tests := []struct {
		name string
		res  bson.M
		want bool
	}{
		{"standalone", bson.M{"isWritablePrimary": true}, false},
		{"replica set", bson.M{"setName": "rs0"}, true},
		{"mongos", bson.M{"msg": "isdbgrid"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := helloSupportsTransactions(tt.res); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnavailableTransactor_FailsFast(t *testing.T) {
	called := false
	err := UnavailableTransactor{}.WithTransaction(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Error("unit of work must not run")
	}
	if apperr.StatusOf(err) != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", apperr.StatusOf(err))
	}
}

func TestCompensatingTransactor_RollsBackInReverse(t *testing.T) {
	tx := NewCompensatingTransactor(zerolog.New(io.Discard))
	var undone []string

	boom := errors.New("segment insert failed")
	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		OnRollback(ctx, func(context.Context) error { undone = append(undone, "paciente"); return nil })
		OnRollback(ctx, func(context.Context) error { undone = append(undone, "historial"); return nil })
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if len(undone) != 2 || undone[0] != "historial" || undone[1] != "paciente" {
		t.Errorf("unexpected undo order: %v", undone)
	}
	if tx.Atomic() {
		t.Error("compensating transactor is not atomic")
	}
}

func TestCompensatingTransactor_CommitSkipsUndo(t *testing.T) {
	tx := NewCompensatingTransactor(zerolog.New(io.Discard))
	undone := false
	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		OnRollback(ctx, func(context.Context) error { undone = true; return nil })
		return nil
	})
	if err != nil || undone {
		t.Errorf("err=%v undone=%v", err, undone)
	}
}

func TestOnRollback_OutsideUnitOfWork(t *testing.T) {
	OnRollback(context.Background(), func(context.Context) error {
		t.Error("must not run")
		return nil
	})
}

func TestCompensating(t *testing.T) {
	if Compensating(context.Background()) {
		t.Error("plain context is not compensating")
	}
	tx := NewCompensatingTransactor(zerolog.New(io.Discard))
	_ = tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		if !Compensating(ctx) {
			t.Error("expected compensating context")
		}
		return nil
	})
}

func TestDatabaseFromURI(t *testing.T) {
	tests := map[string]string{
		"mongodb://localhost:27017/sigepren_db":         "sigepren_db",
		"mongodb://localhost:27017/otra?replicaSet=rs0": "otra",
		"mongodb://localhost:27017":                     DefaultDatabase,
		"mongodb+srv://u:p@cluster.example.net/":        DefaultDatabase,
	}
	for uri, want := range tests {
		if got := DatabaseFromURI(uri); got != want {
			t.Errorf("DatabaseFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestParseObjectID(t *testing.T) {
	if _, err := ParseObjectID("65f0c0ffee00000000000001", "historial_id"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err := ParseObjectID("xyz", "historial_id")
	if err == nil || err.Error() != "historial_id no es un ObjectId válido" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDuplicate(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	if err := Duplicate(dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	other := errors.New("timeout")
	if err := Duplicate(other); err != other {
		t.Errorf("expected error unchanged, got %v", err)
	}
	if Duplicate(nil) != nil {
		t.Error("nil stays nil")
	}
}

func TestRestoreUpdate(t *testing.T) {
	keys := UpdateKeys(bson.M{"a": 1}, []string{"b"})
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("unexpected keys %v", keys)
	}

	undo := restoreUpdate(bson.M{"a": 1}, bson.M{"b": ""})
	if _, ok := undo["$set"]; !ok {
		t.Error("expected $set")
	}
	if _, ok := undo["$unset"]; !ok {
		t.Error("expected $unset")
	}
	if undo := restoreUpdate(bson.M{}, bson.M{"b": ""}); undo["$set"] != nil {
		t.Errorf("empty $set must be omitted: %v", undo)
	}
}

func TestSnapshot_OutsideUnitOfWork(t *testing.T) {
	// nil collection is never touched without an undo log
	if err := Snapshot(context.Background(), nil, [12]byte{}, []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
