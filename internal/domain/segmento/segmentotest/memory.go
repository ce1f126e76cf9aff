package segmentotest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/db"
)

// Memory is an in-memory segment repository. Inserts register an undo
// action with the surrounding compensating unit of work.
type Memory struct {
	mu    sync.Mutex
	Docs  map[primitive.ObjectID]bson.M
	order []primitive.ObjectID
}

func NewMemory() *Memory {
	return &Memory{Docs: make(map[primitive.ObjectID]bson.M)}
}

func (m *Memory) Insert(ctx context.Context, doc bson.M) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	doc["_id"] = id
	m.Docs[id] = doc
	m.order = append(m.order, id)
	db.OnRollback(ctx, func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.Docs, id)
		return nil
	})
	return id, nil
}

func (m *Memory) FindByID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Docs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return doc, nil
}

func (m *Memory) newest(field string, id primitive.ObjectID) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		doc, ok := m.Docs[m.order[i]]
		if ok && doc[field] == id {
			return doc, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *Memory) FindMostRecentByHistorialID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	return m.newest("historial_id", id)
}

func (m *Memory) FindMostRecentByPacienteID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	return m.newest("paciente_id", id)
}

func (m *Memory) Update(_ context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Docs[id]
	if !ok {
		return false, nil
	}
	for k, v := range set {
		doc[k] = v
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Docs[id]; !ok {
		return false, nil
	}
	delete(m.Docs, id)
	return true, nil
}

func (m *Memory) DeleteByHistorialID(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, doc := range m.Docs {
		if doc["historial_id"] == id {
			delete(m.Docs, k)
			n++
		}
	}
	return n, nil
}

// Add stores doc as if it had been inserted, for legacy fixtures.
func (m *Memory) Add(doc bson.M) primitive.ObjectID {
	id, _ := m.Insert(context.Background(), doc)
	return id
}
