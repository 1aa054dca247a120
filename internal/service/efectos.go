package service

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// Notificador hands a batch of notifications over for delivery.
type Notificador interface {
	Notificar(ctx context.Context, ns []model.Notificacion) error
}

// Auditor persists one audit record.
type Auditor interface {
	Registrar(ctx context.Context, a model.Auditoria) error
}

// ── Fanout ───────────────────────────────────────────────────────────────────

// Fanout decides who hears about each domain event and hands the batch to a
// Notificador. Delivery is best-effort: failures are logged and counted and
// never reach the caller.
type Fanout struct {
	n       Notificador
	metrics *metrics.Metrics
}

func NewFanout(n Notificador, m *metrics.Metrics) *Fanout {
	return &Fanout{n: n, metrics: m}
}

func (f *Fanout) enviar(ctx context.Context, evento string, ns []model.Notificacion) {
	if f == nil || f.n == nil || len(ns) == 0 {
		return
	}
	// the mutation is committed; the batch must outlive the request
	if err := f.n.Notificar(context.WithoutCancel(ctx), ns); err != nil {
		log.Warn().Err(err).Str("evento", evento).Int("destinatarios", len(ns)).Msg("fanout: notification batch dropped")
		f.metrics.IncEfectoFallido("notificacion")
	}
}

// miembrosExcepto returns the member ids of g in membership order, without excluded ids.
func miembrosExcepto(g *model.Grupo, excluir ...uuid.UUID) []uuid.UUID {
	if g == nil {
		return nil
	}
	skip := make(map[uuid.UUID]bool, len(excluir))
	for _, id := range excluir {
		skip[id] = true
	}
	out := make([]uuid.UUID, 0, len(g.Miembros))
	for _, m := range g.Miembros {
		if !skip[m.UsuarioID] {
			out = append(out, m.UsuarioID)
		}
	}
	return out
}

func dedup(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type aviso struct {
	emisor      uuid.UUID
	titulo      string
	mensaje     string
	tipo        model.TipoNotificacion
	entidadTipo string
	entidadID   uuid.UUID
	tramiteID   *uuid.UUID
}

func (a aviso) para(destinatarios []uuid.UUID) []model.Notificacion {
	out := make([]model.Notificacion, 0, len(destinatarios))
	for _, d := range destinatarios {
		n := model.Notificacion{
			UsuarioID: d,
			Titulo:    a.titulo,
			Mensaje:   a.mensaje,
			Tipo:      a.tipo,
			TramiteID: a.tramiteID,
		}
		if a.emisor != uuid.Nil {
			e := a.emisor
			n.EmisorID = &e
		}
		if a.entidadTipo != "" {
			et, eid := a.entidadTipo, a.entidadID
			n.EntidadTipo = &et
			n.EntidadID = &eid
		}
		out = append(out, n)
	}
	return out
}

// severidadEstado maps the destination state of a case to a notification type.
func severidadEstado(hacia model.EstadoTramite) model.TipoNotificacion {
	switch hacia {
	case model.TramiteFinalizado:
		return model.NotificacionSuccess
	case model.TramiteDesistido:
		return model.NotificacionWarning
	default:
		return model.NotificacionInfo
	}
}

func etiquetaEstado(e model.EstadoTramite) string {
	switch e {
	case model.TramitePendiente:
		return "Pendiente"
	case model.TramiteEnTramite:
		return "En trámite"
	case model.TramiteFinalizado:
		return "Finalizado"
	case model.TramiteDesistido:
		return "Desistido"
	}
	return string(e)
}

func resumir(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}

// DestinatariosCambioEstado lists who is told about a case state change: every
// group member and the consultante, minus the actor, without duplicates.
func DestinatariosCambioEstado(t *model.Tramite, g *model.Grupo, actorID uuid.UUID) []uuid.UUID {
	ids := miembrosExcepto(g, actorID)
	if t.ConsultanteID != actorID {
		ids = append(ids, t.ConsultanteID)
	}
	return dedup(ids)
}

func (f *Fanout) EntradaAgregada(ctx context.Context, t *model.Tramite, g *model.Grupo, e *model.EntradaHojaRuta) {
	tid := t.ID
	f.enviar(ctx, "hoja_ruta", aviso{
		emisor:      e.UsuarioID,
		titulo:      "Nueva entrada en la hoja de ruta",
		mensaje:     fmt.Sprintf("Carpeta %s: %s", t.NumeroCarpeta, resumir(e.Descripcion, 200)),
		tipo:        model.NotificacionInfo,
		entidadTipo: model.EntidadHojaRuta,
		entidadID:   e.ID,
		tramiteID:   &tid,
	}.para(miembrosExcepto(g, e.UsuarioID)))
}

func (f *Fanout) EstadoTramiteCambiado(ctx context.Context, t *model.Tramite, g *model.Grupo, actorID uuid.UUID, desde, hacia model.EstadoTramite, motivo *string) {
	msg := fmt.Sprintf("La carpeta %s pasó de %s a %s.", t.NumeroCarpeta, etiquetaEstado(desde), etiquetaEstado(hacia))
	if motivo != nil && *motivo != "" {
		msg += " Motivo: " + *motivo
	}
	tid := t.ID
	f.enviar(ctx, "estado_tramite", aviso{
		emisor:      actorID,
		titulo:      fmt.Sprintf("Trámite %s: %s", t.NumeroCarpeta, etiquetaEstado(hacia)),
		mensaje:     msg,
		tipo:        severidadEstado(hacia),
		entidadTipo: model.EntidadTramite,
		entidadID:   t.ID,
		tramiteID:   &tid,
	}.para(DestinatariosCambioEstado(t, g, actorID)))
}

func (f *Fanout) TramiteCreado(ctx context.Context, t *model.Tramite, g *model.Grupo, actorID uuid.UUID) {
	tid := t.ID
	f.enviar(ctx, "tramite_creado", aviso{
		emisor:      actorID,
		titulo:      "Nuevo trámite asignado al grupo",
		mensaje:     fmt.Sprintf("Se abrió la carpeta %s para el grupo %s.", t.NumeroCarpeta, g.Nombre),
		tipo:        model.NotificacionInfo,
		entidadTipo: model.EntidadTramite,
		entidadID:   t.ID,
		tramiteID:   &tid,
	}.para(miembrosExcepto(g, actorID)))
}

func (f *Fanout) FichaAprobada(ctx context.Context, fi *model.Ficha, actorID uuid.UUID) {
	msg := fmt.Sprintf("Su consulta %s fue aprobada.", fi.Numero)
	if fi.TieneCita() {
		msg = fmt.Sprintf("Su consulta %s fue aprobada. Cita: %s %s.", fi.Numero, fi.FechaCita.Format("02/01/2006"), *fi.HoraCita)
	}
	f.enviar(ctx, "ficha_aprobada", aviso{
		emisor:      actorID,
		titulo:      "Consulta aprobada",
		mensaje:     msg,
		tipo:        model.NotificacionSuccess,
		entidadTipo: model.EntidadFicha,
		entidadID:   fi.ID,
	}.para([]uuid.UUID{fi.ConsultanteID}))
}

func (f *Fanout) FichaRechazada(ctx context.Context, fi *model.Ficha, actorID uuid.UUID, motivo string) {
	f.enviar(ctx, "ficha_rechazada", aviso{
		emisor:      actorID,
		titulo:      "Consulta rechazada",
		mensaje:     fmt.Sprintf("Su consulta %s fue rechazada. Motivo: %s", fi.Numero, motivo),
		tipo:        model.NotificacionWarning,
		entidadTipo: model.EntidadFicha,
		entidadID:   fi.ID,
	}.para([]uuid.UUID{fi.ConsultanteID}))
}

func (f *Fanout) FichaAsignada(ctx context.Context, fi *model.Ficha, g *model.Grupo, actorID uuid.UUID) {
	f.enviar(ctx, "ficha_asignada", aviso{
		emisor:      actorID,
		titulo:      "Nueva ficha asignada al grupo",
		mensaje:     fmt.Sprintf("La ficha %s (%s) fue asignada al grupo %s.", fi.Numero, resumir(fi.Tema, 120), g.Nombre),
		tipo:        model.NotificacionInfo,
		entidadTipo: model.EntidadFicha,
		entidadID:   fi.ID,
	}.para(miembrosExcepto(g, actorID)))
}

// ── Registro (audit trail) ───────────────────────────────────────────────────

// Registro appends audit records for committed mutations. Like Fanout it never
// fails the caller.
type Registro struct {
	a       Auditor
	metrics *metrics.Metrics
}

func NewRegistro(a Auditor, m *metrics.Metrics) *Registro {
	return &Registro{a: a, metrics: m}
}

// Registrar records accion on the entity. meta may be nil.
func (r *Registro) Registrar(ctx context.Context, actor Actor, entidad string, entidadID uuid.UUID, accion, detalle string, meta map[string]any) {
	if r == nil || r.a == nil {
		return
	}
	rec := model.Auditoria{
		EntidadTipo: entidad,
		Accion:      accion,
		Detalle:     detalle,
		IP:          actor.IP,
	}
	if actor.UsuarioID != uuid.Nil {
		uid := actor.UsuarioID
		rec.UsuarioID = &uid
	}
	if entidadID != uuid.Nil {
		eid := entidadID
		rec.EntidadID = &eid
	}
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			rec.Metadata = datatypes.JSON(raw)
		}
	}
	if err := r.a.Registrar(context.WithoutCancel(ctx), rec); err != nil {
		log.Error().Err(err).Str("entidad", entidad).Str("entidad_id", entidadID.String()).Str("accion", accion).Msg("audit record dropped")
		r.metrics.IncEfectoFallido("auditoria")
	}
}
