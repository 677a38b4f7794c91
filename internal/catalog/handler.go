package catalog

import (
	"context"
	"net/http"

	"solar_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// geminiAPIKeySetting is the key the admin settings screen reads and writes.
// Only presence is ever reported back; the value itself stays server-side.
const geminiAPIKeySetting = "geminiApiKey"

// Settings is what the handler needs from the settings repository.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SaveSetting(ctx context.Context, key, value string) error
}

type Handler struct {
	catalog  *Catalog
	settings Settings
}

func NewHandler(catalog *Catalog, settings Settings) *Handler {
	return &Handler{catalog: catalog, settings: settings}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/locations/states", h.States)
	rg.GET("/locations/districts/:state", h.Districts)
	rg.GET("/forms/:formType", h.FormSchema)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.GetSettings)
	rg.POST("/settings", h.SaveSettings)
	rg.PUT("/forms/:formType", h.UpdateFormSchema)
}

func (h *Handler) States(c *gin.Context) {
	httpkit.OK(c, h.catalog.States())
}

func (h *Handler) Districts(c *gin.Context) {
	httpkit.OK(c, h.catalog.Districts(c.Param("state")))
}

func (h *Handler) FormSchema(c *gin.Context) {
	httpkit.OK(c, h.catalog.FormSchema(c.Param("formType")))
}

func (h *Handler) GetSettings(c *gin.Context) {
	value, found, err := h.settings.GetSetting(c.Request.Context(), geminiAPIKeySetting)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"apiKeyIsSet": found && value != ""})
}

type saveSettingsRequest struct {
	APIKey string `json:"apiKey"`
}

func (h *Handler) SaveSettings(c *gin.Context) {
	var req saveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	if err := h.settings.SaveSetting(c.Request.Context(), geminiAPIKeySetting, req.APIKey); httpkit.HandleError(c, err) {
		return
	}
	httpkit.Message(c, "API key saved")
}

// UpdateFormSchema acknowledges the request without persisting anything. The
// admin UI offers schema editing but the schemas are compiled in.
func (h *Handler) UpdateFormSchema(c *gin.Context) {
	httpkit.Message(c, "Form schema updated successfully (mock)")
}
