package memoria

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
)

// ── Fichas ───────────────────────────────────────────────────────────────────

type fichaRepo struct{ s *Store }

func (r *fichaRepo) Create(_ context.Context, f *model.Ficha) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.fichas {
		if o.Numero == f.Numero {
			return domainerr.Conflicto("ficha duplicada (numero)")
		}
	}
	f.ID = newID(f.ID)
	if f.Version == 0 {
		f.Version = 1
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	stored := *f
	stored.Consultante, stored.Docente = nil, nil
	r.s.fichas[f.ID] = stored
	return nil
}

func (r *fichaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Ficha, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fichas[id]
	if !ok {
		return nil, domainerr.NoEncontrado("ficha no encontrado")
	}
	return &f, nil
}

func (r *fichaRepo) List(_ context.Context, filter dto.FichaFilter) ([]model.Ficha, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Ficha{}
	for _, f := range r.s.fichas {
		if filter.Estado != "" && string(f.Estado) != filter.Estado {
			continue
		}
		if filter.DocenteID != "" && f.DocenteID.String() != filter.DocenteID {
			continue
		}
		if filter.ConsultanteID != "" && f.ConsultanteID.String() != filter.ConsultanteID {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Anio != out[j].Anio {
			return out[i].Anio > out[j].Anio
		}
		return out[i].Secuencia > out[j].Secuencia
	})
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *fichaRepo) Update(_ context.Context, f *model.Ficha) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.fichas[f.ID]
	if !ok || cur.Version != f.Version {
		return domainerr.Conflicto("ficha modificado concurrentemente, vuelva a intentar")
	}
	f.Version++
	f.UpdatedAt = time.Now()
	stored := *f
	stored.Consultante, stored.Docente = nil, nil
	r.s.fichas[f.ID] = stored
	return nil
}

func (r *fichaRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.fichas[id]; !ok {
		return domainerr.NoEncontrado("ficha no encontrado")
	}
	delete(r.s.fichas, id)
	return nil
}

// ── Trámites ─────────────────────────────────────────────────────────────────

type tramiteRepo struct{ s *Store }

func (r *tramiteRepo) Create(_ context.Context, t *model.Tramite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.tramites {
		if o.NumeroCarpeta == t.NumeroCarpeta {
			return domainerr.Conflicto("tramite duplicado (numero_carpeta)")
		}
		if t.FichaID != nil && o.FichaID != nil && *o.FichaID == *t.FichaID {
			return domainerr.Conflicto("tramite duplicado (ficha_id)")
		}
	}
	t.ID = newID(t.ID)
	if t.Version == 0 {
		t.Version = 1
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := *t
	stored.Consultante, stored.Grupo = nil, nil
	r.s.tramites[t.ID] = stored
	return nil
}

func (r *tramiteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Tramite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tramites[id]
	if !ok {
		return nil, domainerr.NoEncontrado("tramite no encontrado")
	}
	_ = t.AfterFind(nil)
	return &t, nil
}

func (r *tramiteRepo) ExistsNumeroCarpeta(_ context.Context, numero string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tramites {
		if t.NumeroCarpeta == numero {
			return true, nil
		}
	}
	return false, nil
}

func (r *tramiteRepo) List(_ context.Context, filter dto.TramiteFilter) ([]model.Tramite, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var estado model.EstadoTramite
	if filter.Estado != "" {
		estado, _ = model.NormalizarEstadoTramite(filter.Estado)
	}
	out := []model.Tramite{}
	for _, t := range r.s.tramites {
		_ = t.AfterFind(nil)
		if filter.Estado != "" && t.Estado != estado {
			continue
		}
		if filter.GrupoID != "" && t.GrupoID.String() != filter.GrupoID {
			continue
		}
		if filter.ConsultanteID != "" && t.ConsultanteID.String() != filter.ConsultanteID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaInicio.After(out[j].FechaInicio) })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *tramiteRepo) Update(_ context.Context, t *model.Tramite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tramites[t.ID]
	if !ok || cur.Version != t.Version {
		return domainerr.Conflicto("tramite modificado concurrentemente, vuelva a intentar")
	}
	cur.Estado = t.Estado
	cur.FechaCierre = t.FechaCierre
	cur.MotivoCierre = t.MotivoCierre
	cur.Observaciones = t.Observaciones
	cur.Version = t.Version + 1
	cur.UpdatedAt = time.Now()
	r.s.tramites[t.ID] = cur
	t.Version = cur.Version
	return nil
}

func (r *tramiteRepo) CountByGrupo(_ context.Context, grupoID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tramites {
		if t.GrupoID == grupoID {
			n++
		}
	}
	return n, nil
}

// SeedTramite stores t as-is, bypassing normalization, to simulate legacy rows.
func (s *Store) SeedTramite(t model.Tramite) model.Tramite {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = newID(t.ID)
	if t.Version == 0 {
		t.Version = 1
	}
	s.tramites[t.ID] = t
	return t
}

// ── Hoja de ruta ─────────────────────────────────────────────────────────────

type hojaRutaRepo struct{ s *Store }

func (r *hojaRutaRepo) Create(_ context.Context, e *model.EntradaHojaRuta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = newID(e.ID)
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	stored := *e
	stored.Usuario = nil
	r.s.entradas[e.ID] = stored
	return nil
}

func (r *hojaRutaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.EntradaHojaRuta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entradas[id]
	if !ok {
		return nil, domainerr.NoEncontrado("entrada de hoja de ruta no encontrado")
	}
	return &e, nil
}

func (r *hojaRutaRepo) Update(_ context.Context, e *model.EntradaHojaRuta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.entradas[e.ID]
	if !ok {
		return domainerr.NoEncontrado("entrada de hoja de ruta no encontrado")
	}
	cur.Fecha = e.Fecha
	cur.Descripcion = e.Descripcion
	cur.UpdatedAt = time.Now()
	r.s.entradas[e.ID] = cur
	return nil
}

func (r *hojaRutaRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.entradas, id)
	return nil
}

func (r *hojaRutaRepo) ListByTramite(_ context.Context, tramiteID uuid.UUID) ([]model.EntradaHojaRuta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.EntradaHojaRuta{}
	for _, e := range r.s.entradas {
		if e.TramiteID != tramiteID {
			continue
		}
		if u, ok := r.s.usuarios[e.UsuarioID]; ok {
			c := copyUsuario(u)
			e.Usuario = &c
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ── Documentos ───────────────────────────────────────────────────────────────

type documentoRepo struct{ s *Store }

func (r *documentoRepo) Create(_ context.Context, d *model.DocumentoTramite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = newID(d.ID)
	d.CreatedAt = time.Now()
	r.s.documentos[d.ID] = *d
	return nil
}

func (r *documentoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.DocumentoTramite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documentos[id]
	if !ok {
		return nil, domainerr.NoEncontrado("documento no encontrado")
	}
	return &d, nil
}

func (r *documentoRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.documentos, id)
	return nil
}

func (r *documentoRepo) ListByTramite(_ context.Context, tramiteID uuid.UUID) ([]model.DocumentoTramite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.DocumentoTramite{}
	for _, d := range r.s.documentos {
		if d.TramiteID == tramiteID {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ── Secuencias ───────────────────────────────────────────────────────────────

type secuenciaRepo struct{ s *Store }

func (r *secuenciaRepo) Siguiente(_ context.Context, prefijo string, anio int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := fmt.Sprintf("%s/%d", prefijo, anio)
	r.s.secuencias[key]++
	return r.s.secuencias[key], nil
}
