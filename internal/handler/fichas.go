package handler

import (
	"net/http"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type FichasHandler struct{ svc service.FichaService }

func NewFichasHandler(svc service.FichaService) *FichasHandler {
	return &FichasHandler{svc: svc}
}

// Crear godoc
// @Summary Registra una ficha de consulta
// @Tags fichas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearFichaRequest true "Ficha"
// @Success 201 {object} dto.FichaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/fichas [post]
func (h *FichasHandler) Crear(c *gin.Context) {
	var req dto.CrearFichaRequest
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
// @Summary Lista fichas
// @Tags fichas
// @Produce json
// @Security BearerAuth
// @Param estado query string false "Estado"
// @Param page query int false "Pagina"
// @Param limit query int false "Tamano de pagina"
// @Success 200 {object} dto.FichaListResponse
// @Router /v1/fichas [get]
func (h *FichasHandler) Listar(c *gin.Context) {
	var filter dto.FichaFilter
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

func (h *FichasHandler) ObtenerPorID(c *gin.Context) {
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

// Aprobar godoc
// @Summary Aprueba una ficha pendiente (pasa a standby)
// @Tags fichas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ficha ID"
// @Param body body dto.AprobarFichaRequest true "Cita"
// @Success 200 {object} dto.FichaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/fichas/{id}/aprobar [post]
func (h *FichasHandler) Aprobar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AprobarFichaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Aprobar(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rechazar godoc
// @Summary Rechaza una ficha pendiente
// @Tags fichas
// @Accept json
// @Security BearerAuth
// @Param id path string true "Ficha ID"
// @Param body body dto.RechazarFichaRequest true "Motivo"
// @Success 204
// @Router /v1/fichas/{id}/rechazar [post]
func (h *FichasHandler) Rechazar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.RechazarFichaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Rechazar(c.Request.Context(), actor(c), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AsignarGrupo godoc
// @Summary Asigna una ficha en standby a un grupo
// @Tags fichas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ficha ID"
// @Param body body dto.AsignarGrupoRequest true "Grupo"
// @Success 200 {object} dto.FichaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/fichas/{id}/asignar-grupo [post]
func (h *FichasHandler) AsignarGrupo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AsignarGrupoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AsignarGrupo(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// IniciarTramite godoc
// @Summary Convierte una ficha asignada en tramite
// @Tags fichas
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ficha ID"
// @Success 201 {object} dto.IniciarTramiteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/fichas/{id}/iniciar-tramite [post]
func (h *FichasHandler) IniciarTramite(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.IniciarTramite(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *FichasHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
