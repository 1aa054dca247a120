// Package memoria implements every repository interface over in-process maps.
// It enforces the same uniqueness and version checks as the PostgreSQL schema,
// rolls back failed transactions, and backs service and handler tests.
package memoria

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/google/uuid"
)

// Store holds all rows. Repositories returned by its accessors share it.
type Store struct {
	txMu           sync.Mutex
	mu             sync.Mutex
	usuarios       map[uuid.UUID]model.Usuario
	grupos         map[uuid.UUID]model.Grupo
	miembros       map[uuid.UUID]model.MiembroGrupo
	fichas         map[uuid.UUID]model.Ficha
	tramites       map[uuid.UUID]model.Tramite
	entradas       map[uuid.UUID]model.EntradaHojaRuta
	documentos     map[uuid.UUID]model.DocumentoTramite
	notificaciones []model.Notificacion
	auditoria      []model.Auditoria
	secuencias     map[string]int
}

func NewStore() *Store {
	return &Store{
		usuarios:   make(map[uuid.UUID]model.Usuario),
		grupos:     make(map[uuid.UUID]model.Grupo),
		miembros:   make(map[uuid.UUID]model.MiembroGrupo),
		fichas:     make(map[uuid.UUID]model.Ficha),
		tramites:   make(map[uuid.UUID]model.Tramite),
		entradas:   make(map[uuid.UUID]model.EntradaHojaRuta),
		documentos: make(map[uuid.UUID]model.DocumentoTramite),
		secuencias: make(map[string]int),
	}
}

func (s *Store) Usuarios() repository.UsuarioRepository { return &usuarioRepo{s} }
func (s *Store) Grupos() repository.GrupoRepository { return &grupoRepo{s} }
func (s *Store) Fichas() repository.FichaRepository { return &fichaRepo{s} }
func (s *Store) Tramites() repository.TramiteRepository { return &tramiteRepo{s} }
func (s *Store) HojaRuta() repository.HojaRutaRepository { return &hojaRutaRepo{s} }
func (s *Store) Documentos() repository.DocumentoRepository { return &documentoRepo{s} }
func (s *Store) Secuencias() repository.SecuenciaRepository { return &secuenciaRepo{s} }
func (s *Store) Notificaciones() repository.NotificacionRepository { return &notificacionRepo{s} }
func (s *Store) Auditoria() repository.AuditoriaRepository { return &auditoriaRepo{s} }
func (s *Store) Transactor() repository.Transactor { return transactor{s} }

// Repos returns the full repository bundle over s.
func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Tx:             s.Transactor(),
		Usuarios:       s.Usuarios(),
		Grupos:         s.Grupos(),
		Fichas:         s.Fichas(),
		Tramites:       s.Tramites(),
		HojaRuta:       s.HojaRuta(),
		Documentos:     s.Documentos(),
		Secuencias:     s.Secuencias(),
		Notificaciones: s.Notificaciones(),
		Auditoria:      s.Auditoria(),
	}
}

// transactor runs one transaction at a time over the whole store. A failing fn
// restores every table to its state before the call.
type transactor struct{ s *Store }

type txKey struct{}

type snapshot struct {
	usuarios       map[uuid.UUID]model.Usuario
	grupos         map[uuid.UUID]model.Grupo
	miembros       map[uuid.UUID]model.MiembroGrupo
	fichas         map[uuid.UUID]model.Ficha
	tramites       map[uuid.UUID]model.Tramite
	entradas       map[uuid.UUID]model.EntradaHojaRuta
	documentos     map[uuid.UUID]model.DocumentoTramite
	notificaciones []model.Notificacion
	auditoria      []model.Auditoria
	secuencias     map[string]int
}

func (t transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	antes := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(antes)
		return err
	}
	return nil
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	usuarios := make(map[uuid.UUID]model.Usuario, len(s.usuarios))
	for id, u := range s.usuarios {
		usuarios[id] = copyUsuario(u)
	}
	return snapshot{
		usuarios:       usuarios,
		grupos:         maps.Clone(s.grupos),
		miembros:       maps.Clone(s.miembros),
		fichas:         maps.Clone(s.fichas),
		tramites:       maps.Clone(s.tramites),
		entradas:       maps.Clone(s.entradas),
		documentos:     maps.Clone(s.documentos),
		notificaciones: slices.Clone(s.notificaciones),
		auditoria:      slices.Clone(s.auditoria),
		secuencias:     maps.Clone(s.secuencias),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usuarios = snap.usuarios
	s.grupos = snap.grupos
	s.miembros = snap.miembros
	s.fichas = snap.fichas
	s.tramites = snap.tramites
	s.entradas = snap.entradas
	s.documentos = snap.documentos
	s.notificaciones = snap.notificaciones
	s.auditoria = snap.auditoria
	s.secuencias = snap.secuencias
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func paginate[T any](rows []T, page, limit int) []T {
	if limit <= 0 {
		return rows
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
