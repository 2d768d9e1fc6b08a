package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ServicesHandler struct {
	svs CatalogServicer
}

func NewServicesHandler(svs CatalogServicer) *ServicesHandler {
	return &ServicesHandler{
		svs: svs,
	}
}

type ServiceResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Rate        decimal.Decimal `json:"rate"`
	MinQuantity int64           `json:"min_quantity"`
	MaxQuantity int64           `json:"max_quantity"`
}

// Index GET RouteGroup + ServicesRoute. Активные услуги каталога.
func (s *ServicesHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	services, err := s.svs.ActiveServices(reqCtx)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(services) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]ServiceResponse, len(services))
	for i, svc := range services {
		response[i] = ServiceResponse{
			ID:          svc.ID,
			Name:        svc.Name,
			Category:    svc.Category,
			Rate:        svc.Rate,
			MinQuantity: svc.MinQuantity,
			MaxQuantity: svc.MaxQuantity,
		}
	}

	c.JSON(http.StatusOK, response)
}
