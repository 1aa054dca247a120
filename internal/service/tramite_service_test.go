package service

import (
	"context"
	"os"
	"testing"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *entorno) tramite(t *testing.T, gb grupoBase, actor *model.Usuario) uuid.UUID {
	t.Helper()
	tr, err := e.tramites.Crear(context.Background(), actorDe(actor), dto.CrearTramiteRequest{
		ConsultanteID: gb.consultante.ID.String(),
		GrupoID:       gb.id.String(),
	})
	require.NoError(t, err)
	return uuid.MustParse(tr.ID)
}

func (e *entorno) cambiar(t *testing.T, actor *model.Usuario, id uuid.UUID, req dto.CambiarEstadoTramiteRequest) (*dto.TramiteResponse, error) {
	t.Helper()
	return e.tramites.CambiarEstado(context.Background(), actorDe(actor), id, req)
}

func TestTramite_CrearEstadoSegunRolEfectivo(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()

	porAdmin, err := e.tramites.ObtenerPorID(ctx, e.tramite(t, gb, gb.admin))
	require.NoError(t, err)
	assert.Equal(t, string(model.TramitePendiente), porAdmin.Estado)

	porDocente, err := e.tramites.ObtenerPorID(ctx, e.tramite(t, gb, gb.lead))
	require.NoError(t, err)
	assert.Equal(t, string(model.TramiteEnTramite), porDocente.Estado)

	// An administrator acting as docente opens the case directly.
	rolDocente := model.RolDocente
	dual := e.usuario(t, "dual", model.RolAdministrador, model.NivelOperativo, model.GrantRol{Rol: model.RolDocente})
	dual.RolActivo = &rolDocente
	porDual, err := e.tramites.ObtenerPorID(ctx, e.tramite(t, gb, dual))
	require.NoError(t, err)
	assert.Equal(t, string(model.TramiteEnTramite), porDual.Estado)

	assert.Equal(t, "T001/25", porAdmin.NumeroCarpeta)
	assert.Equal(t, "T002/25", porDocente.NumeroCarpeta)
	assert.Equal(t, "T003/25", porDual.NumeroCarpeta)
}

func TestTramite_CrearEstudianteNoAutorizado(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	_, err := e.tramites.Crear(context.Background(), actorDe(gb.est1), dto.CrearTramiteRequest{
		ConsultanteID: gb.consultante.ID.String(),
		GrupoID:       gb.id.String(),
	})
	requireKind(t, err, domainerr.KindNoAutorizado)
}

func TestTramite_NumeroCarpetaManual(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	req := dto.CrearTramiteRequest{
		ConsultanteID: gb.consultante.ID.String(),
		GrupoID:       gb.id.String(),
		NumeroCarpeta: ptr(" t001/25 "),
	}

	tr, err := e.tramites.Crear(ctx, actorDe(gb.lead), req)
	require.NoError(t, err)
	assert.Equal(t, "T001/25", tr.NumeroCarpeta)

	_, err = e.tramites.Crear(ctx, actorDe(gb.lead), req)
	requireKind(t, err, domainerr.KindConflicto)

	req.NumeroCarpeta = ptr("CARPETA-1")
	_, err = e.tramites.Crear(ctx, actorDe(gb.lead), req)
	requireKind(t, err, domainerr.KindValidacion)

	// The generated sequence skips the manually taken number.
	generado, err := e.tramites.ObtenerPorID(ctx, e.tramite(t, gb, gb.lead))
	require.NoError(t, err)
	assert.Equal(t, "T002/25", generado.NumeroCarpeta)
}

func TestTramite_CrearNotificaAlGrupo(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	e.tramite(t, gb, gb.lead)
	assert.ElementsMatch(t,
		[]uuid.UUID{gb.asistente.ID, gb.est1.ID, gb.est2.ID},
		destinatarios(e.notif.ultimo()))
}

func TestTramite_TransicionInvalidaNoCambiaEstado(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	id := e.tramite(t, gb, gb.admin)

	_, err := e.cambiar(t, gb.admin, id, dto.CambiarEstadoTramiteRequest{Estado: "finalizado"})
	de := requireKind(t, err, domainerr.KindTransicionInvalida)
	assert.Equal(t, "pendiente", de.Actual)
	assert.Equal(t, []string{"en_tramite", "desistido"}, de.Permitidos)

	got, err := e.tramites.ObtenerPorID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "pendiente", got.Estado)
	assert.Nil(t, got.FechaCierre)
	assert.Equal(t, 1, e.notif.total(), "only the creation batch")
}

func TestTramite_MatrizDeTransiciones(t *testing.T) {
	casos := []struct {
		desde, hacia model.EstadoTramite
		ok           bool
	}{
		{model.TramitePendiente, model.TramiteEnTramite, true},
		{model.TramitePendiente, model.TramiteDesistido, true},
		{model.TramitePendiente, model.TramiteFinalizado, false},
		{model.TramiteEnTramite, model.TramiteFinalizado, true},
		{model.TramiteEnTramite, model.TramitePendiente, true},
		{model.TramiteEnTramite, model.TramiteDesistido, true},
		{model.TramiteFinalizado, model.TramiteEnTramite, true},
		{model.TramiteFinalizado, model.TramiteDesistido, true},
		{model.TramiteFinalizado, model.TramitePendiente, false},
		{model.TramiteDesistido, model.TramiteEnTramite, true},
		{model.TramiteDesistido, model.TramiteFinalizado, false},
		{model.TramiteDesistido, model.TramitePendiente, false},
	}
	for _, c := range casos {
		t.Run(string(c.desde)+"->"+string(c.hacia), func(t *testing.T) {
			e := nuevoEntorno(t)
			gb := e.grupoBase(t)
			seeded := e.store.SeedTramite(model.Tramite{
				NumeroCarpeta: "T050/25",
				ConsultanteID: gb.consultante.ID,
				GrupoID:       gb.id,
				Estado:        c.desde,
				FechaInicio:   hoy,
				CreadoPor:     gb.admin.ID,
			})

			got, err := e.cambiar(t, gb.admin, seeded.ID, dto.CambiarEstadoTramiteRequest{Estado: string(c.hacia)})
			if !c.ok {
				requireKind(t, err, domainerr.KindTransicionInvalida)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(c.hacia), got.Estado)
			assert.Equal(t, 1.0, testutil.ToFloat64(
				e.metrics.Transiciones.WithLabelValues(model.EntidadTramite, string(c.desde), string(c.hacia))))
		})
	}
}

func TestTramite_FinalizarYReactivar(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	id := e.tramite(t, gb, gb.lead)

	fin, err := e.cambiar(t, gb.lead, id, dto.CambiarEstadoTramiteRequest{Estado: "finalizado", MotivoCierre: ptr("acuerdo homologado")})
	require.NoError(t, err)
	assert.Equal(t, "finalizado", fin.Estado)
	require.NotNil(t, fin.FechaCierre)
	assert.Equal(t, "2025-03-10", *fin.FechaCierre)
	require.NotNil(t, fin.MotivoCierre)
	assert.Equal(t, "acuerdo homologado", *fin.MotivoCierre)

	ns := e.notif.ultimo()
	assert.ElementsMatch(t,
		[]uuid.UUID{gb.asistente.ID, gb.est1.ID, gb.est2.ID, gb.consultante.ID},
		destinatarios(ns))
	for _, n := range ns {
		assert.Equal(t, model.NotificacionSuccess, n.Tipo)
	}

	reabierto, err := e.cambiar(t, gb.lead, id, dto.CambiarEstadoTramiteRequest{Estado: "en_tramite"})
	require.NoError(t, err)
	assert.Equal(t, "en_tramite", reabierto.Estado)
	assert.Nil(t, reabierto.FechaCierre)
	assert.Nil(t, reabierto.MotivoCierre)
	for _, n := range e.notif.ultimo() {
		assert.Equal(t, model.NotificacionInfo, n.Tipo)
	}
}

func TestTramite_FinalizarConFechaExplicita(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	id := e.tramite(t, gb, gb.lead)
	fin, err := e.cambiar(t, gb.lead, id, dto.CambiarEstadoTramiteRequest{Estado: "finalizado", FechaCierre: ptr("2025-02-28")})
	require.NoError(t, err)
	require.NotNil(t, fin.FechaCierre)
	assert.Equal(t, "2025-02-28", *fin.FechaCierre)
}

func TestTramite_DesistirSinDatosDeCierre(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	id := e.tramite(t, gb, gb.lead)
	got, err := e.cambiar(t, gb.lead, id, dto.CambiarEstadoTramiteRequest{Estado: "desistido"})
	require.NoError(t, err)
	assert.Nil(t, got.FechaCierre)
	for _, n := range e.notif.ultimo() {
		assert.Equal(t, model.NotificacionWarning, n.Tipo)
	}
}

func TestTramite_AnotarSinCambiarEstado(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	id := e.tramite(t, gb, gb.lead)
	antes := e.notif.total()

	got, err := e.cambiar(t, gb.lead, id, dto.CambiarEstadoTramiteRequest{MotivoCierre: ptr("pendiente de firma")})
	require.NoError(t, err)
	assert.Equal(t, "en_tramite", got.Estado)
	require.NotNil(t, got.MotivoCierre)
	assert.Equal(t, "pendiente de firma", *got.MotivoCierre)
	assert.Equal(t, antes, e.notif.total())

	rows, _, err := e.store.Auditoria().List(ctx, dto.AuditoriaFilter{EntidadID: id.String()})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "anotar_cierre", rows[0].Accion)

	_, err = e.cambiar(t, gb.lead, id, dto.CambiarEstadoTramiteRequest{Estado: "en_tramite"})
	requireKind(t, err, domainerr.KindValidacion)
}

func TestTramite_CambiarEstadoPermisos(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	id := e.tramite(t, gb, gb.lead)
	ajeno := e.usuario(t, "ajeno", model.RolDocente, 1)
	req := dto.CambiarEstadoTramiteRequest{Estado: "desistido"}

	_, err := e.cambiar(t, ajeno, id, req)
	requireKind(t, err, domainerr.KindNoAutorizado)
	_, err = e.cambiar(t, gb.est1, id, req)
	requireKind(t, err, domainerr.KindNoAutorizado)

	_, err = e.cambiar(t, gb.asistente, id, req)
	require.NoError(t, err)
}

func TestTramite_EstadoLegacyIniciado(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	legacy := e.store.SeedTramite(model.Tramite{
		NumeroCarpeta: "T099/24",
		ConsultanteID: gb.consultante.ID,
		GrupoID:       gb.id,
		Estado:        "iniciado",
		FechaInicio:   hoy,
		CreadoPor:     gb.admin.ID,
	})

	got, err := e.tramites.ObtenerPorID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "en_tramite", got.Estado)

	list, err := e.tramites.Listar(ctx, dto.TramiteFilter{Estado: "iniciado", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)

	fin, err := e.cambiar(t, gb.lead, legacy.ID, dto.CambiarEstadoTramiteRequest{Estado: "finalizado"})
	require.NoError(t, err)
	assert.Equal(t, "finalizado", fin.Estado)

	reabierto, err := e.cambiar(t, gb.lead, legacy.ID, dto.CambiarEstadoTramiteRequest{Estado: "iniciado"})
	require.NoError(t, err)
	assert.Equal(t, "en_tramite", reabierto.Estado)
}

func TestTramite_Aprobar(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	id := e.tramite(t, gb, gb.admin)

	_, err := e.tramites.Aprobar(ctx, actorDe(gb.lead), id)
	requireKind(t, err, domainerr.KindNoAutorizado)

	got, err := e.tramites.Aprobar(ctx, actorDe(gb.admin), id)
	require.NoError(t, err)
	assert.Equal(t, "en_tramite", got.Estado)

	_, err = e.tramites.Aprobar(ctx, actorDe(gb.admin), id)
	de := requireKind(t, err, domainerr.KindTransicionInvalida)
	assert.Equal(t, "en_tramite", de.Actual)
}

func TestTramite_HojaDeRuta(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	id := e.tramite(t, gb, gb.lead)

	_, err := e.tramites.AgregarEntrada(ctx, actorDe(gb.asistente), id, dto.EntradaHojaRutaRequest{Fecha: "2025-03-10", Descripcion: "Revision"})
	requireKind(t, err, domainerr.KindNoAutorizado)

	segunda, err := e.tramites.AgregarEntrada(ctx, actorDe(gb.est1), id, dto.EntradaHojaRutaRequest{Fecha: "2025-03-12", Descripcion: "Presentacion de escrito"})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]uuid.UUID{gb.lead.ID, gb.asistente.ID, gb.est2.ID},
		destinatarios(e.notif.ultimo()))

	primera, err := e.tramites.AgregarEntrada(ctx, actorDe(gb.est2), id, dto.EntradaHojaRutaRequest{Fecha: "2025-03-11", Descripcion: "Entrevista con el consultante"})
	require.NoError(t, err)

	entradas, err := e.tramites.ListarHojaRuta(ctx, id)
	require.NoError(t, err)
	require.Len(t, entradas, 2)
	assert.Equal(t, primera.ID, entradas[0].ID)
	assert.Equal(t, segunda.ID, entradas[1].ID)
	assert.Equal(t, gb.est2.Nombre, entradas[0].Autor)

	entradaID := uuid.MustParse(segunda.ID)
	_, err = e.tramites.EditarEntrada(ctx, actorDe(gb.est2), id, entradaID, dto.EntradaHojaRutaRequest{Fecha: "2025-03-12", Descripcion: "ajena"})
	requireKind(t, err, domainerr.KindNoAutorizado)

	editada, err := e.tramites.EditarEntrada(ctx, actorDe(gb.est1), id, entradaID, dto.EntradaHojaRutaRequest{Fecha: "2025-03-13", Descripcion: "Escrito presentado"})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-13", editada.Fecha)

	err = e.tramites.EliminarEntrada(ctx, actorDe(gb.est1), uuid.New(), entradaID)
	requireKind(t, err, domainerr.KindNoEncontrado)
	require.NoError(t, e.tramites.EliminarEntrada(ctx, actorDe(gb.est1), id, entradaID))

	entradas, err = e.tramites.ListarHojaRuta(ctx, id)
	require.NoError(t, err)
	assert.Len(t, entradas, 1)
}

func TestTramite_ExportarHojaRutaPDF(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	id := e.tramite(t, gb, gb.lead)
	_, err := e.tramites.AgregarEntrada(ctx, actorDe(gb.est1), id, dto.EntradaHojaRutaRequest{Fecha: "2025-03-12", Descripcion: "Audiencia fijada"})
	require.NoError(t, err)

	path, err := e.tramites.ExportarHojaRutaPDF(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, path, "hoja_ruta_T001-25.pdf")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestTramite_Documentos(t *testing.T) {
	e := nuevoEntorno(t)
	gb := e.grupoBase(t)
	ctx := context.Background()
	id := e.tramite(t, gb, gb.lead)
	ajeno := e.usuario(t, "ajeno", model.RolEstudiante, 1)
	req := dto.AdjuntarDocumentoRequest{Nombre: "demanda.pdf", URL: "https://files.test/demanda.pdf"}

	_, err := e.tramites.AdjuntarDocumento(ctx, actorDe(ajeno), id, req)
	requireKind(t, err, domainerr.KindNoAutorizado)

	doc, err := e.tramites.AdjuntarDocumento(ctx, actorDe(gb.est1), id, req)
	require.NoError(t, err)
	docs, err := e.tramites.ListarDocumentos(ctx, id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, gb.est1.ID.String(), docs[0].SubidoPor)

	docID := uuid.MustParse(doc.ID)
	err = e.tramites.EliminarDocumento(ctx, actorDe(gb.est2), id, docID)
	requireKind(t, err, domainerr.KindNoAutorizado)
	require.NoError(t, e.tramites.EliminarDocumento(ctx, actorDe(gb.admin), id, docID))

	docs, err = e.tramites.ListarDocumentos(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
