package memoria

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTramiteUpdate_VersionObsoleta(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Tramites()
	tr := &model.Tramite{NumeroCarpeta: "T001/25", Estado: model.TramiteEnTramite, FechaInicio: time.Now()}
	require.NoError(t, repo.Create(ctx, tr))

	a, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)

	a.Estado = model.TramiteFinalizado
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, 2, a.Version)

	b.Estado = model.TramiteDesistido
	err = repo.Update(ctx, b)
	assert.ErrorIs(t, err, domainerr.ErrConflicto)

	got, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TramiteFinalizado, got.Estado)
}

func TestTramiteCreate_NumeroYFichaUnicos(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	fichaID := uuid.New()
	require.NoError(t, s.Tramites().Create(ctx, &model.Tramite{NumeroCarpeta: "T001/25", FichaID: &fichaID}))

	err := s.Tramites().Create(ctx, &model.Tramite{NumeroCarpeta: "T001/25"})
	assert.ErrorIs(t, err, domainerr.ErrConflicto)
	err = s.Tramites().Create(ctx, &model.Tramite{NumeroCarpeta: "T002/25", FichaID: &fichaID})
	assert.ErrorIs(t, err, domainerr.ErrConflicto)
}

func TestMiembros_IndicesParciales(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	lead, est := uuid.New(), uuid.New()
	g1 := &model.Grupo{Nombre: "A", Activo: true, Miembros: []model.MiembroGrupo{
		{UsuarioID: lead, Rol: model.RolGrupoResponsable},
		{UsuarioID: est, Rol: model.RolGrupoEstudiante},
	}}
	require.NoError(t, s.Grupos().Create(ctx, g1))

	err := s.Grupos().CreateMiembro(ctx, &model.MiembroGrupo{GrupoID: g1.ID, UsuarioID: uuid.New(), Rol: model.RolGrupoResponsable})
	assert.ErrorIs(t, err, domainerr.ErrInvariante)

	g2 := &model.Grupo{Nombre: "B", Activo: true, Miembros: []model.MiembroGrupo{
		{UsuarioID: uuid.New(), Rol: model.RolGrupoResponsable},
		{UsuarioID: est, Rol: model.RolGrupoEstudiante},
	}}
	err = s.Grupos().Create(ctx, g2)
	assert.ErrorIs(t, err, domainerr.ErrInvariante)

	grupos, err := s.Grupos().List(ctx)
	require.NoError(t, err)
	require.Len(t, grupos, 1)
	assert.Len(t, grupos[0].Miembros, 2)

	err = s.Grupos().Create(ctx, &model.Grupo{Nombre: "a"})
	assert.ErrorIs(t, err, domainerr.ErrConflicto)
}

func TestSecuencias_PorPrefijoYAnio(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seq := s.Secuencias()

	n, _ := seq.Siguiente(ctx, "F", 2025)
	assert.Equal(t, 1, n)
	n, _ = seq.Siguiente(ctx, "F", 2025)
	assert.Equal(t, 2, n)
	n, _ = seq.Siguiente(ctx, "T", 2025)
	assert.Equal(t, 1, n)
	n, _ = seq.Siguiente(ctx, "F", 2026)
	assert.Equal(t, 1, n)
}

func TestSeedTramite_LegacyNormalizadoAlLeer(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	tr := s.SeedTramite(model.Tramite{NumeroCarpeta: "T001/24", Estado: "iniciado"})
	got, err := s.Tramites().FindByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TramiteEnTramite, got.Estado)
}

func TestTokenStore(t *testing.T) {
	ts := NewTokenStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }
	uid := uuid.New()

	require.NoError(t, ts.Guardar(ctx, "a", uid, time.Hour))
	got, ok, err := ts.Consumir(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uid, got)

	_, ok, _ = ts.Consumir(ctx, "a")
	assert.False(t, ok, "single use")

	require.NoError(t, ts.Guardar(ctx, "b", uid, time.Minute))
	now = now.Add(2 * time.Minute)
	_, ok, _ = ts.Consumir(ctx, "b")
	assert.False(t, ok, "expired")

	require.NoError(t, ts.Guardar(ctx, "c", uid, time.Hour))
	require.NoError(t, ts.Revocar(ctx, "c"))
	_, ok, _ = ts.Consumir(ctx, "c")
	assert.False(t, ok)
}

func TestWithinTx_RollbackRestauraTodo(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := &model.Usuario{Nombre: "ana", Email: "ana@clinica.test", Rol: model.RolDocente, Activo: true,
		RolesSecundarios: []model.RolSecundario{{Rol: model.RolAdministrador, NivelAcceso: model.NivelOperativo}}}
	require.NoError(t, s.Usuarios().Create(ctx, u))

	errCorte := errors.New("corte")
	err := s.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Usuarios().ReplaceRolesSecundarios(ctx, u.ID, nil))
		_, err := s.Secuencias().Siguiente(ctx, model.PrefijoTramite, 2025)
		require.NoError(t, err)
		require.NoError(t, s.Tramites().Create(ctx, &model.Tramite{NumeroCarpeta: "T001/25", Estado: model.TramiteEnTramite, FechaInicio: time.Now()}))
		// nested calls join the outer transaction
		return s.Transactor().WithinTx(ctx, func(context.Context) error { return errCorte })
	})
	require.ErrorIs(t, err, errCorte)

	got, err := s.Usuarios().FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.RolesSecundarios, 1)
	assert.Equal(t, model.RolAdministrador, got.RolesSecundarios[0].Rol)

	existe, err := s.Tramites().ExistsNumeroCarpeta(ctx, "T001/25")
	require.NoError(t, err)
	assert.False(t, existe)

	n, err := s.Secuencias().Siguiente(ctx, model.PrefijoTramite, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWithinTx_ConfirmaSinError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	err := s.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		return s.Tramites().Create(ctx, &model.Tramite{NumeroCarpeta: "T002/25", Estado: model.TramiteEnTramite, FechaInicio: time.Now()})
	})
	require.NoError(t, err)
	existe, err := s.Tramites().ExistsNumeroCarpeta(ctx, "T002/25")
	require.NoError(t, err)
	assert.True(t, existe)
}
