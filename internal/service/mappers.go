package service

import (
	"encoding/json"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
)

const (
	layoutFecha = "2006-01-02"
	layoutHora  = "15:04"
)

func parseFecha(campo, raw string) (time.Time, error) {
	t, err := time.Parse(layoutFecha, raw)
	if err != nil {
		return time.Time{}, domainerr.Validacion("%s invalida: %q (formato AAAA-MM-DD)", campo, raw)
	}
	return t, nil
}

func fechaPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layoutFecha)
	return &s
}

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func usuarioToResponse(u *model.Usuario) dto.UsuarioResponse {
	p := u.Perfil()
	resp := dto.UsuarioResponse{
		ID:               u.ID.String(),
		Nombre:           u.Nombre,
		Email:            u.Email,
		Documento:        u.Documento,
		Telefono:         u.Telefono,
		Rol:              string(u.Rol),
		NivelAcceso:      u.NivelAcceso,
		RolEfectivo:      string(p.RolEfectivo()),
		RolesSecundarios: make([]dto.GrantRolResponse, 0, len(u.RolesSecundarios)),
		Activo:           u.Activo,
	}
	if u.RolActivo != nil && *u.RolActivo != "" {
		r := string(*u.RolActivo)
		resp.RolActivo = &r
	}
	for _, rs := range u.RolesSecundarios {
		resp.RolesSecundarios = append(resp.RolesSecundarios, dto.GrantRolResponse{Rol: string(rs.Rol), NivelAcceso: rs.NivelAcceso})
	}
	for _, r := range p.RolesDisponibles() {
		resp.RolesDisponibles = append(resp.RolesDisponibles, string(r))
	}
	return resp
}

func fichaToResponse(f *model.Ficha) dto.FichaResponse {
	return dto.FichaResponse{
		ID:            f.ID.String(),
		Numero:        f.Numero,
		ConsultanteID: f.ConsultanteID.String(),
		DocenteID:     f.DocenteID.String(),
		Tema:          f.Tema,
		FechaCita:     fechaPtr(f.FechaCita),
		HoraCita:      f.HoraCita,
		Estado:        string(f.Estado),
		GrupoID:       idPtr(f.GrupoID),
		TramiteID:     idPtr(f.TramiteID),
		Observaciones: f.Observaciones,
		Version:       f.Version,
		CreatedAt:     f.CreatedAt.Format(time.RFC3339),
	}
}

func tramiteToResponse(t *model.Tramite) dto.TramiteResponse {
	return dto.TramiteResponse{
		ID:            t.ID.String(),
		NumeroCarpeta: t.NumeroCarpeta,
		ConsultanteID: t.ConsultanteID.String(),
		GrupoID:       t.GrupoID.String(),
		FichaID:       idPtr(t.FichaID),
		Estado:        string(t.Estado),
		FechaInicio:   t.FechaInicio.Format(layoutFecha),
		FechaCierre:   fechaPtr(t.FechaCierre),
		MotivoCierre:  t.MotivoCierre,
		Observaciones: t.Observaciones,
		Version:       t.Version,
	}
}

func entradaToResponse(e *model.EntradaHojaRuta) dto.EntradaHojaRutaResponse {
	resp := dto.EntradaHojaRutaResponse{
		ID:          e.ID.String(),
		TramiteID:   e.TramiteID.String(),
		UsuarioID:   e.UsuarioID.String(),
		Fecha:       e.Fecha.Format(layoutFecha),
		Descripcion: e.Descripcion,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.Usuario != nil {
		resp.Autor = e.Usuario.Nombre
	}
	return resp
}

func documentoToResponse(d *model.DocumentoTramite) dto.DocumentoResponse {
	return dto.DocumentoResponse{
		ID:        d.ID.String(),
		TramiteID: d.TramiteID.String(),
		Nombre:    d.Nombre,
		URL:       d.URL,
		SubidoPor: d.SubidoPor.String(),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

func grupoToResponse(g *model.Grupo) dto.GrupoResponse {
	resp := dto.GrupoResponse{
		ID:          g.ID.String(),
		Nombre:      g.Nombre,
		Descripcion: g.Descripcion,
		Activo:      g.Activo,
		Miembros:    make([]dto.MiembroResponse, 0, len(g.Miembros)),
	}
	for _, m := range g.Miembros {
		mr := dto.MiembroResponse{UsuarioID: m.UsuarioID.String(), Rol: string(m.Rol)}
		if m.Usuario != nil {
			mr.Nombre = m.Usuario.Nombre
			mr.Email = m.Usuario.Email
		}
		resp.Miembros = append(resp.Miembros, mr)
	}
	return resp
}

func notificacionToResponse(n *model.Notificacion) dto.NotificacionResponse {
	return dto.NotificacionResponse{
		ID:          n.ID.String(),
		Titulo:      n.Titulo,
		Mensaje:     n.Mensaje,
		Tipo:        string(n.Tipo),
		EntidadTipo: n.EntidadTipo,
		EntidadID:   idPtr(n.EntidadID),
		TramiteID:   idPtr(n.TramiteID),
		Leida:       n.Leida,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}
}

func auditoriaToResponse(a *model.Auditoria) dto.AuditoriaResponse {
	resp := dto.AuditoriaResponse{
		ID:          a.ID.String(),
		UsuarioID:   idPtr(a.UsuarioID),
		EntidadTipo: a.EntidadTipo,
		EntidadID:   idPtr(a.EntidadID),
		Accion:      a.Accion,
		Detalle:     a.Detalle,
		IP:          a.IP,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	if len(a.Metadata) > 0 {
		resp.Metadata = json.RawMessage(a.Metadata)
	}
	return resp
}

func estadosFicha(es []model.EstadoFicha) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = string(e)
	}
	return out
}

func estadosTramite(es []model.EstadoTramite) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = string(e)
	}
	return out
}
