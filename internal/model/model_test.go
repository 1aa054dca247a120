package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rolPtr(r Rol) *Rol { return &r }

func TestPerfilRoles_RolEfectivo(t *testing.T) {
	p := PerfilRoles{Principal: GrantRol{Rol: RolDocente}}
	assert.Equal(t, RolDocente, p.RolEfectivo())

	p.Activo = rolPtr(RolAdministrador)
	assert.Equal(t, RolAdministrador, p.RolEfectivo())

	p.Activo = rolPtr("")
	assert.Equal(t, RolDocente, p.RolEfectivo())
}

func TestPerfilRoles_RolesDisponiblesDedup(t *testing.T) {
	p := PerfilRoles{
		Principal: GrantRol{Rol: RolDocente},
		Secundarios: []GrantRol{
			{Rol: RolAdministrador, NivelAcceso: 1},
			{Rol: RolDocente},
			{Rol: RolAdministrador, NivelAcceso: 3},
		},
	}
	assert.Equal(t, []Rol{RolDocente, RolAdministrador}, p.RolesDisponibles())
	assert.True(t, p.TieneRol(RolAdministrador))
	assert.False(t, p.TieneRol(RolEstudiante))
	assert.True(t, p.TieneAlgunRol(RolEstudiante, RolDocente))
}

func TestPerfilRoles_NivelAccesoAdmin(t *testing.T) {
	principal := PerfilRoles{Principal: GrantRol{Rol: RolAdministrador, NivelAcceso: 3}}
	assert.Equal(t, 3, principal.NivelAccesoAdmin())
	assert.True(t, principal.EsAdminSistema())

	secundario := PerfilRoles{
		Principal: GrantRol{Rol: RolDocente, NivelAcceso: 3},
		Secundarios: []GrantRol{
			{Rol: RolAdministrador, NivelAcceso: 1},
			{Rol: RolAdministrador, NivelAcceso: 3},
		},
	}
	assert.Equal(t, 1, secundario.NivelAccesoAdmin())
	assert.False(t, secundario.EsAdminSistema())

	sinAdmin := PerfilRoles{Principal: GrantRol{Rol: RolEstudiante}}
	assert.Equal(t, 0, sinAdmin.NivelAccesoAdmin())
	assert.False(t, sinAdmin.EsAdmin())

	assert.Empty(t, PerfilRoles{}.RolesDisponibles())
}

func TestUsuario_Perfil(t *testing.T) {
	u := Usuario{
		Rol:              RolEstudiante,
		NivelAcceso:      1,
		RolActivo:        rolPtr(RolConsultante),
		RolesSecundarios: []RolSecundario{{Rol: RolConsultante, NivelAcceso: 1}},
	}
	p := u.Perfil()
	assert.Equal(t, RolConsultante, p.RolEfectivo())
	assert.Equal(t, []Rol{RolEstudiante, RolConsultante}, p.RolesDisponibles())
}

func TestEstadoFicha_Transiciones(t *testing.T) {
	assert.True(t, FichaPendiente.PuedePasarA(FichaStandby))
	assert.False(t, FichaPendiente.PuedePasarA(FichaAsignada))
	assert.True(t, FichaStandby.PuedePasarA(FichaAsignada))
	assert.True(t, FichaAsignada.PuedePasarA(FichaIniciada))
	assert.Empty(t, FichaIniciada.Siguientes())
}

func TestEstadoTramite_Tabla(t *testing.T) {
	todos := []EstadoTramite{TramitePendiente, TramiteEnTramite, TramiteFinalizado, TramiteDesistido}
	permitidas := map[EstadoTramite][]EstadoTramite{
		TramitePendiente:  {TramiteEnTramite, TramiteDesistido},
		TramiteEnTramite:  {TramiteFinalizado, TramitePendiente, TramiteDesistido},
		TramiteFinalizado: {TramiteEnTramite, TramiteDesistido},
		TramiteDesistido:  {TramiteEnTramite},
	}
	for _, desde := range todos {
		for _, hacia := range todos {
			want := false
			for _, p := range permitidas[desde] {
				if p == hacia {
					want = true
				}
			}
			assert.Equal(t, want, desde.PuedePasarA(hacia), "%s -> %s", desde, hacia)
		}
	}
}

func TestNormalizarEstadoTramite(t *testing.T) {
	e, ok := NormalizarEstadoTramite("iniciado")
	require.True(t, ok)
	assert.Equal(t, TramiteEnTramite, e)

	e, ok = NormalizarEstadoTramite(" Finalizado ")
	require.True(t, ok)
	assert.Equal(t, TramiteFinalizado, e)

	_, ok = NormalizarEstadoTramite("archivado")
	assert.False(t, ok)
}

func TestTramite_AfterFindCanonicalizesLegacy(t *testing.T) {
	tr := &Tramite{Estado: "iniciado"}
	require.NoError(t, tr.AfterFind(nil))
	assert.Equal(t, TramiteEnTramite, tr.Estado)
}

func TestNumeracion(t *testing.T) {
	assert.Equal(t, "F007/25", FormatNumero(PrefijoFicha, 7, 2025))
	assert.Equal(t, "T1234/26", FormatNumero(PrefijoTramite, 1234, 2026))

	p, seq, yy, err := ParseNumero("T042/25")
	require.NoError(t, err)
	assert.Equal(t, "T", p)
	assert.Equal(t, 42, seq)
	assert.Equal(t, 25, yy)

	assert.True(t, NumeroCarpetaValido("T1/24"))
	assert.False(t, NumeroCarpetaValido("F001/24"))
	assert.False(t, NumeroCarpetaValido("T001-24"))
}

func TestFicha_Eliminable(t *testing.T) {
	f := &Ficha{Estado: FichaStandby}
	assert.True(t, f.Eliminable())

	g := f.ID
	f.GrupoID = &g
	assert.False(t, f.Eliminable())

	assert.False(t, (&Ficha{Estado: FichaIniciada}).Eliminable())
}
