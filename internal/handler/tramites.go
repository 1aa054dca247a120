package handler

import (
	"net/http"
	"path/filepath"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type TramitesHandler struct{ svc service.TramiteService }

func NewTramitesHandler(svc service.TramiteService) *TramitesHandler {
	return &TramitesHandler{svc: svc}
}

// Crear godoc
// @Summary Abre un tramite
// @Tags tramites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearTramiteRequest true "Tramite"
// @Success 201 {object} dto.TramiteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/tramites [post]
func (h *TramitesHandler) Crear(c *gin.Context) {
	var req dto.CrearTramiteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Lista tramites
// @Tags tramites
// @Produce json
// @Security BearerAuth
// @Param estado query string false "Estado"
// @Param grupo_id query string false "Grupo"
// @Success 200 {object} dto.TramiteListResponse
// @Router /v1/tramites [get]
func (h *TramitesHandler) Listar(c *gin.Context) {
	var filter dto.TramiteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TramitesHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarEstado godoc
// @Summary Cambia el estado del tramite o anota el cierre
// @Tags tramites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tramite ID"
// @Param body body dto.CambiarEstadoTramiteRequest true "Estado"
// @Success 200 {object} dto.TramiteResponse
// @Failure 409 {object} apierror.APIError "transicion_invalida con estado_actual y permitidos"
// @Router /v1/tramites/{id}/estado [patch]
func (h *TramitesHandler) CambiarEstado(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CambiarEstadoTramiteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CambiarEstado(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TramitesHandler) Aprobar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Aprobar(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Hoja de ruta ─────────────────────────────────────────────────────────────

func (h *TramitesHandler) ListarHojaRuta(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarHojaRuta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarEntrada godoc
// @Summary Agrega una entrada a la hoja de ruta
// @Tags tramites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tramite ID"
// @Param body body dto.EntradaHojaRutaRequest true "Entrada"
// @Success 201 {object} dto.EntradaHojaRutaResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/tramites/{id}/hoja-ruta [post]
func (h *TramitesHandler) AgregarEntrada(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.EntradaHojaRutaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarEntrada(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TramitesHandler) EditarEntrada(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entradaID, ok := paramID(c, "entradaId")
	if !ok {
		return
	}
	var req dto.EntradaHojaRutaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EditarEntrada(c.Request.Context(), actor(c), id, entradaID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TramitesHandler) EliminarEntrada(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entradaID, ok := paramID(c, "entradaId")
	if !ok {
		return
	}
	if err := h.svc.EliminarEntrada(c.Request.Context(), actor(c), id, entradaID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportarHojaRuta godoc
// @Summary Descarga la hoja de ruta en PDF
// @Tags tramites
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Tramite ID"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/tramites/{id}/hoja-ruta/pdf [get]
func (h *TramitesHandler) ExportarHojaRuta(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.ExportarHojaRutaPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// ── Documentos ───────────────────────────────────────────────────────────────

func (h *TramitesHandler) ListarDocumentos(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarDocumentos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TramitesHandler) AdjuntarDocumento(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjuntarDocumentoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjuntarDocumento(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TramitesHandler) EliminarDocumento(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	docID, ok := paramID(c, "docId")
	if !ok {
		return
	}
	if err := h.svc.EliminarDocumento(c.Request.Context(), actor(c), id, docID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
