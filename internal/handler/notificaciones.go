package handler

import (
	"net/http"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificacionesHandler struct{ svc service.NotificacionService }

func NewNotificacionesHandler(svc service.NotificacionService) *NotificacionesHandler {
	return &NotificacionesHandler{svc: svc}
}

// Listar godoc
// @Summary Bandeja de notificaciones del usuario
// @Tags notificaciones
// @Produce json
// @Security BearerAuth
// @Param no_leidas query bool false "Solo no leidas"
// @Success 200 {array} dto.NotificacionResponse
// @Router /v1/notificaciones [get]
func (h *NotificacionesHandler) Listar(c *gin.Context) {
	var filter dto.NotificacionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), actor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificacionesHandler) ContarNoLeidas(c *gin.Context) {
	resp, err := h.svc.ContarNoLeidas(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificacionesHandler) MarcarLeida(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarcarLeida(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificacionesHandler) MarcarTodasLeidas(c *gin.Context) {
	resp, err := h.svc.MarcarTodasLeidas(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EnviarMensaje godoc
// @Summary Envia un mensaje directo a usuarios (administrador)
// @Tags notificaciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.EnviarMensajeRequest true "Mensaje"
// @Success 201 {object} dto.ContadorResponse
// @Router /v1/notificaciones/mensajes [post]
func (h *NotificacionesHandler) EnviarMensaje(c *gin.Context) {
	var req dto.EnviarMensajeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EnviarMensaje(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
