package segmento

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/segmento/segmentotest"
	"github.com/sigepren/sigepren/internal/platform/apperr"
)

// -- Mocks --

type mockRepo = segmentotest.Memory

func newMockRepo() *mockRepo {
	return segmentotest.NewMemory()
}

type historialSet map[primitive.ObjectID]bool

func (h historialSet) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	return h[id], nil
}

func newTestService(def *Definition) (*Service, *mockRepo, primitive.ObjectID) {
	repo := newMockRepo()
	hid := primitive.NewObjectID()
	svc := NewService(def, repo, historialSet{hid: true})
	svc.now = func() time.Time { return time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC) }
	return svc, repo, hid
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apperr.StatusOf(err); got != status {
		t.Fatalf("expected status %d, got %d (%v)", status, got, err)
	}
}

// -- Tests --

func TestService_Create(t *testing.T) {
	svc, repo, hid := newTestService(Puerperio())
	pid := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	payload := segmentotest.Payload("puerperio")
	payload["paciente_id"] = pid.Hex()

	id, err := svc.Create(context.Background(), hid.Hex(), payload, uid.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := repo.Docs[id]
	if doc["historial_id"] != hid || doc["paciente_id"] != pid || doc["usuario_id"] != uid {
		t.Errorf("references not stored: %v", doc)
	}
	if _, ok := doc["created_at"].(time.Time); !ok {
		t.Error("expected created_at")
	}
}

func TestService_Create_UnknownHistorial(t *testing.T) {
	svc, _, _ := newTestService(Anticoncepcion())
	_, err := svc.Create(context.Background(), primitive.NewObjectID().Hex(), segmentotest.Payload("anticoncepcion"), "")
	wantStatus(t, err, 404)
	if err.Error() != "historial_id no encontrado en historiales" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Create_InvalidIDs(t *testing.T) {
	svc, _, hid := newTestService(Anticoncepcion())
	_, err := svc.Create(context.Background(), "nope", segmentotest.Payload("anticoncepcion"), "")
	wantStatus(t, err, 422)

	p := segmentotest.Payload("anticoncepcion")
	p["paciente_id"] = "123"
	_, err = svc.Create(context.Background(), hid.Hex(), p, "")
	wantStatus(t, err, 422)
	if err.Error() != "paciente_id no es un ObjectId válido" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Create_RequiresUsuario(t *testing.T) {
	svc, _, hid := newTestService(Identificacion())
	_, err := svc.Create(context.Background(), hid.Hex(), segmentotest.Payload("identificacion"), "")
	wantStatus(t, err, 422)
	if err.Error() != "usuario_actual.usuario_id es requerido" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, repo, hid := newTestService(Anticoncepcion())
	_, err := svc.Create(context.Background(), hid.Hex(), map[string]any{"consejeria": "si"}, "")
	wantStatus(t, err, 422)
	if len(repo.Docs) != 0 {
		t.Error("nothing should be stored on validation failure")
	}
}

func TestService_GetByHistorial_MostRecent(t *testing.T) {
	svc, _, hid := newTestService(Anticoncepcion())
	ctx := context.Background()
	first := segmentotest.Payload("anticoncepcion")
	if _, err := svc.Create(ctx, hid.Hex(), first, ""); err != nil {
		t.Fatal(err)
	}
	second := segmentotest.Payload("anticoncepcion")
	second["metodo_elegido"] = "diu"
	id, err := svc.Create(ctx, hid.Hex(), second, "")
	if err != nil {
		t.Fatal(err)
	}

	doc, err := svc.GetByHistorial(ctx, hid.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["id"] != id.Hex() || doc["metodo_elegido"] != "diu" {
		t.Errorf("expected newest document, got %v", doc)
	}
	if _, ok := doc["_id"]; ok {
		t.Error("_id should be rendered as id")
	}

	_, err = svc.GetByHistorial(ctx, primitive.NewObjectID().Hex())
	wantStatus(t, err, 404)
	if err.Error() != "No se encontró anticoncepción para este historial" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _, _ := newTestService(Puerperio())
	_, err := svc.Get(context.Background(), primitive.NewObjectID().Hex())
	wantStatus(t, err, 404)
	if err.Error() != "No se encontraron datos" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestService_Update_RecomputesDerived(t *testing.T) {
	svc, repo, hid := newTestService(GestacionActual())
	ctx := context.Background()
	id, err := svc.Create(ctx, hid.Hex(), segmentotest.Payload("gestacion_actual"), "")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Update(ctx, id.Hex(), map[string]any{"peso_anterior": 45}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.Docs[id]["imc"]; got != 20.0 {
		t.Errorf("expected imc 20, got %v", got)
	}
}

func TestService_Update_ChecksMergedDocument(t *testing.T) {
	svc, _, hid := newTestService(Antecedentes())
	ctx := context.Background()
	id, err := svc.Create(ctx, hid.Hex(), segmentotest.Payload("antecedentes"), "")
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Update(ctx, id.Hex(), map[string]any{"cesareas": 3})
	wantStatus(t, err, 422)
}

func TestService_Update_Errors(t *testing.T) {
	svc, _, hid := newTestService(Anticoncepcion())
	ctx := context.Background()
	id, err := svc.Create(ctx, hid.Hex(), segmentotest.Payload("anticoncepcion"), "")
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Update(ctx, id.Hex(), map[string]any{"desconocido": 1})
	wantStatus(t, err, 422)
	if err.Error() != "Nada para actualizar" {
		t.Errorf("unexpected message: %v", err)
	}

	err = svc.Update(ctx, primitive.NewObjectID().Hex(), map[string]any{"consejeria": "no"})
	wantStatus(t, err, 404)
	if err.Error() != "No se encontró el documento" {
		t.Errorf("unexpected message: %v", err)
	}

	err = svc.Update(ctx, id.Hex(), map[string]any{"historial_id": primitive.NewObjectID().Hex()})
	wantStatus(t, err, 404)
}

func TestService_Delete(t *testing.T) {
	svc, repo, hid := newTestService(Anticoncepcion())
	ctx := context.Background()
	id, _ := svc.Create(ctx, hid.Hex(), segmentotest.Payload("anticoncepcion"), "")

	if err := svc.Delete(ctx, id.Hex()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.Docs) != 0 {
		t.Error("expected document removed")
	}
	wantStatus(t, svc.Delete(ctx, id.Hex()), 404)
}

func TestService_DeleteByHistorial(t *testing.T) {
	svc, _, hid := newTestService(Anticoncepcion())
	ctx := context.Background()
	svc.Create(ctx, hid.Hex(), segmentotest.Payload("anticoncepcion"), "")
	svc.Create(ctx, hid.Hex(), segmentotest.Payload("anticoncepcion"), "")

	n, err := svc.DeleteByHistorial(ctx, hid.Hex())
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted, got %d (%v)", n, err)
	}
	_, err = svc.DeleteByHistorial(ctx, hid.Hex())
	wantStatus(t, err, 404)
}

func TestResolve_Chain(t *testing.T) {
	repo := newMockRepo()
	ctx := context.Background()
	hid, pid := primitive.NewObjectID(), primitive.NewObjectID()

	byPaciente, _ := repo.Insert(ctx, bson.M{"paciente_id": pid})
	referenced, _ := repo.Insert(ctx, bson.M{"metodo_elegido": "diu"})

	doc, err := Resolve(ctx, repo, Link{HistorialID: hid, PacienteID: pid})
	if err != nil || doc["_id"] != byPaciente {
		t.Fatalf("expected patient fallback, got %v (%v)", doc, err)
	}

	doc, _ = Resolve(ctx, repo, Link{HistorialID: hid, RefID: referenced, PacienteID: pid})
	if doc["_id"] != referenced {
		t.Errorf("expected stored reference to win over patient, got %v", doc)
	}

	filed, _ := repo.Insert(ctx, bson.M{"historial_id": hid})
	doc, _ = Resolve(ctx, repo, Link{HistorialID: hid, RefID: referenced, PacienteID: pid})
	if doc["_id"] != filed {
		t.Errorf("expected historial match first, got %v", doc)
	}

	doc, err = Resolve(ctx, repo, Link{HistorialID: primitive.NewObjectID()})
	if err != nil || doc != nil {
		t.Errorf("expected nil without error, got %v (%v)", doc, err)
	}
}

type failingResolver struct{ *mockRepo }

func (failingResolver) FindMostRecentByHistorialID(context.Context, primitive.ObjectID) (bson.M, error) {
	return nil, errors.New("socket closed")
}

func TestResolve_PropagatesErrors(t *testing.T) {
	_, err := Resolve(context.Background(), failingResolver{newMockRepo()}, Link{HistorialID: primitive.NewObjectID()})
	if err == nil {
		t.Fatal("expected storage error")
	}
}

func TestNewServices_RegistryOrder(t *testing.T) {
	reg := DefaultRegistry()
	svcs := NewServices(reg, func(*Definition) Repository { return newMockRepo() }, historialSet{})
	all := svcs.All()
	if len(all) != len(reg.All()) {
		t.Fatalf("expected %d services, got %d", len(reg.All()), len(all))
	}
	for i, d := range reg.All() {
		if all[i].Definition() != d {
			t.Errorf("service %d is %s, want %s", i, all[i].Definition().Name, d.Name)
		}
	}
	if _, ok := svcs.Get("puerperio"); !ok {
		t.Error("expected puerperio service")
	}
}
