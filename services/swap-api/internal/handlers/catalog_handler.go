package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"go.uber.org/zap"
)

// CatalogHandler serves the option lists used to populate the form's selectors.
type CatalogHandler struct {
	logger  *zap.Logger
	catalog *catalog.Catalog
}

func NewCatalogHandler(logger *zap.Logger, c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{logger: logger, catalog: c}
}

func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/networks/:network/tokens", h.GetTokens)
	r.GET("/currencies", h.GetCurrencies)
	r.GET("/currencies/:currency/institutions", h.GetInstitutions)
}

func (h *CatalogHandler) GetTokens(c *gin.Context) {
	tokens, err := h.catalog.Tokens(c.Param("network"))
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownNetwork) {
			respondError(c, h.logger, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "unknown network", err))
			return
		}
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, tokens)
}

func (h *CatalogHandler) GetCurrencies(c *gin.Context) {
	out := make([]catalog.Currency, 0, len(h.catalog.Currencies))
	for _, cur := range h.catalog.Currencies {
		cur.Institutions = nil
		out = append(out, cur)
	}
	respond(c, http.StatusOK, out)
}

func (h *CatalogHandler) GetInstitutions(c *gin.Context) {
	cur, ok := h.catalog.Currency(c.Param("currency"))
	if !ok {
		respondError(c, h.logger, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "unknown currency", nil))
		return
	}
	respond(c, http.StatusOK, cur.Institutions)
}
