package reporte

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/domain/cita"
	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/cache"
	"github.com/sigepren/sigepren/internal/platform/metrics"
)

const DefaultCacheTTL = 60 * time.Second

type Service struct {
	src    Source
	cache  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewService builds the dashboard service. A nil store disables caching.
func NewService(src Source, store cache.Store, ttl time.Duration, logger zerolog.Logger) *Service {
	if store == nil {
		store = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		src:    src,
		cache:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "reporte").Logger(),
		now:    time.Now,
	}
}

// Rango resolves the requested bounds, falling back to the current month.
func (s *Service) Rango(startISO, endISO string) Rango {
	return ParseRango(startISO, endISO, s.now())
}

// GenerarResumenPanel computes the dashboard for the requested range,
// served from the cache when possible. Cache failures only cost a
// recomputation.
func (s *Service) GenerarResumenPanel(ctx context.Context, startISO, endISO string) (Resumen, Rango, error) {
	r := s.Rango(startISO, endISO)
	key := r.key()

	raw, hit, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordDashboardCache("error")
		s.logger.Warn().Err(err).Msg("cache no disponible")
	case hit:
		var out Resumen
		if err := json.Unmarshal(raw, &out); err == nil {
			metrics.RecordDashboardCache("hit")
			return out, r, nil
		}
	default:
		metrics.RecordDashboardCache("miss")
	}

	out, err := s.calcular(ctx, r)
	if err != nil {
		return Resumen{}, r, err
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("no se pudo guardar el resumen en cache")
		}
	}
	return out, r, nil
}

func (s *Service) calcular(ctx context.Context, r Rango) (Resumen, error) {
	ids, err := s.src.PacientesActivos(ctx)
	if err != nil {
		return Resumen{}, apperr.Internal(err)
	}
	completadas, err := s.src.ContarCitas(ctx, cita.StatusCompleted, r)
	if err != nil {
		return Resumen{}, apperr.Internal(err)
	}
	programadas, err := s.src.ContarCitas(ctx, cita.StatusScheduled, r)
	if err != nil {
		return Resumen{}, apperr.Internal(err)
	}

	niveles := Niveles{}
	for _, id := range ids {
		ga, err := s.src.GestacionActual(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("paciente_id", id.Hex()).Msg("no se pudo clasificar")
			niveles[NivelNinguno]++
			continue
		}
		if ga == nil {
			niveles[NivelNinguno]++
			continue
		}
		niveles[Clasificar(ga, r.End)]++
	}
	return nuevoResumen(int64(len(ids)), completadas, programadas, niveles), nil
}
