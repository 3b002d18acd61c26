package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/pkg/apperr"
)

// respondError maps the error taxonomy to HTTP status codes, uniformly for
// every endpoint
func respondError(c *gin.Context, err error) {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code.HTTPStatus(), model.ErrorResponse{Error: appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal server error"})
}
