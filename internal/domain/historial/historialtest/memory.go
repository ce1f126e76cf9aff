// Package historialtest provides an in-memory historial repository for
// tests of the packages built on top of historial.
package historialtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/historial"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

type Memory struct {
	mu      sync.Mutex
	Records map[primitive.ObjectID]*historial.Historial
}

func NewMemory() *Memory {
	return &Memory{Records: make(map[primitive.ObjectID]*historial.Historial)}
}

func (m *Memory) Insert(ctx context.Context, h *historial.Historial) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Records {
		if r.PacienteID == h.PacienteID && r.NumeroGesta == h.NumeroGesta {
			return primitive.NilObjectID, db.ErrDuplicate
		}
	}
	h.ID = primitive.NewObjectID()
	m.Records[h.ID] = h
	id := h.ID
	db.OnRollback(ctx, func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.Records, id)
		return nil
	})
	return id, nil
}

func (m *Memory) FindByID(_ context.Context, id primitive.ObjectID) (*historial.Historial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return h, nil
}

func (m *Memory) byPaciente(pid primitive.ObjectID) []*historial.Historial {
	var out []*historial.Historial
	for _, h := range m.Records {
		if h.PacienteID == pid {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumeroGesta > out[j].NumeroGesta })
	return out
}

func (m *Memory) FindLatestByPaciente(_ context.Context, pid primitive.ObjectID) (*historial.Historial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs := m.byPaciente(pid)
	if len(hs) == 0 {
		return nil, db.ErrNotFound
	}
	return hs[0], nil
}

func (m *Memory) FindByPacienteYGesta(_ context.Context, pid primitive.ObjectID, n int64) (*historial.Historial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.byPaciente(pid) {
		if h.NumeroGesta == n {
			return h, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *Memory) MaxNumeroGesta(_ context.Context, pid primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hs := m.byPaciente(pid); len(hs) > 0 {
		return hs[0].NumeroGesta, nil
	}
	return 0, nil
}

func (m *Memory) GestaTaken(_ context.Context, pid primitive.ObjectID, n int64, except primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.byPaciente(pid) {
		if h.ID != except && h.NumeroGesta == n {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Update(_ context.Context, id primitive.ObjectID, set bson.M, unset []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Records[id]
	if !ok {
		return false, nil
	}
	for k, v := range set {
		switch k {
		case "numero_gesta":
			h.NumeroGesta, _ = v.(int64)
		case "activo":
			b, _ := v.(bool)
			h.Activo = &b
		case "updated_at":
			h.UpdatedAt, _ = v.(time.Time)
		case "created_at", "paciente_id":
		default:
			if h.Refs == nil {
				h.Refs = bson.M{}
			}
			h.Refs[k] = v
		}
	}
	for _, k := range unset {
		delete(h.Refs, k)
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Records[id]; !ok {
		return false, nil
	}
	delete(m.Records, id)
	return true, nil
}

func (m *Memory) List(_ context.Context, f historial.Filter, _ pagination.Params) ([]*historial.Historial, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*historial.Historial
	for _, h := range m.Records {
		if !f.PacienteID.IsZero() && h.PacienteID != f.PacienteID {
			continue
		}
		if f.SoloActivos && !h.IsActivo() {
			continue
		}
		out = append(out, h)
	}
	return out, int64(len(out)), nil
}

func (m *Memory) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Records[id]
	return ok, nil
}
