package handler

import (
	"errors"
	"net/http"

	"github.com/TabareCasalas/SiGeST-sub000/internal/apierror"
	"github.com/TabareCasalas/SiGeST-sub000/internal/middleware"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, filter)
}

func validar(c *gin.Context, v interface{}) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// paramID parses the uuid path parameter name, answering 400 when malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError hands err to middleware.ErrorHandler, which renders the
// domain envelope. Credential failures answer 401 here.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrCredencialesInvalidas) || errors.Is(err, service.ErrTokenInvalido) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(err.Error()))
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// actor builds the service caller from the validated token.
func actor(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{IP: c.ClientIP()}
	}
	return service.Actor{UsuarioID: claims.UsuarioID(), Perfil: claims.Perfil(), IP: c.ClientIP()}
}
