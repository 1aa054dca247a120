package service

import (
	"strings"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation, as resolved from its token.
type Actor struct {
	UsuarioID uuid.UUID
	Perfil    model.PerfilRoles
	IP        string
}

func requireRol(a Actor, roles ...model.Rol) error {
	if a.Perfil.TieneAlgunRol(roles...) {
		return nil
	}
	nombres := make([]string, len(roles))
	for i, r := range roles {
		nombres[i] = string(r)
	}
	return domainerr.NoAutorizado("operacion reservada a: %s", strings.Join(nombres, ", "))
}

func requireAdmin(a Actor) error {
	return requireRol(a, model.RolAdministrador)
}

// requireAdminSistema requires the administrador role with system access level.
func requireAdminSistema(a Actor) error {
	if a.Perfil.EsAdminSistema() {
		return nil
	}
	return domainerr.NoAutorizado("operacion reservada a administradores con nivel de acceso %d", model.NivelSistema)
}

func parseID(campo, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domainerr.Validacion("%s invalido: %q", campo, raw)
	}
	return id, nil
}

// renombrarNoEncontrado replaces a generic not-found message with one naming the role
// the missing row plays in the command.
func renombrarNoEncontrado(err error, format string, args ...any) error {
	if domainerr.KindOf(err) == domainerr.KindNoEncontrado {
		return domainerr.NoEncontrado(format, args...)
	}
	return err
}
