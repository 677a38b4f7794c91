// Package exports streams lead data as CSV downloads. The export respects
// the same role scoping and filters as the lead list.
package exports

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"solar_crm_backend/internal/leads/service"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var csvHeader = []string{
	"id", "name", "email", "phone", "productType", "pipelineStage",
	"source", "score", "scoreStatus", "assignedVendor", "otpVerified", "createdAt",
}

type Handler struct {
	leads *service.Service
}

func NewHandler(leads *service.Service) *Handler {
	return &Handler{leads: leads}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export", h.Export)
}

func (h *Handler) Export(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	leads, err := h.leads.List(c.Request.Context(), actorFromContext(c), query)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=leads-%s.csv", time.Now().Format("2006-01-02")))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(csvHeader); err != nil {
		return
	}
	for _, lead := range leads {
		if err := writer.Write(leadRow(lead)); err != nil {
			return
		}
	}
	writer.Flush()
}

func leadRow(lead transport.LeadResponse) []string {
	return []string{
		lead.ID.String(),
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.ProductType,
		lead.PipelineStage,
		lead.Source,
		strconv.Itoa(lead.Score),
		lead.ScoreStatus,
		lead.AssignedVendorName,
		strconv.FormatBool(lead.OTPVerified),
		lead.CreatedAt.Format(time.RFC3339),
	}
}

func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get(httpkit.ContextUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ID = id
		}
	}
	if v, ok := c.Get(httpkit.ContextUserNameKey); ok {
		actor.Name, _ = v.(string)
	}
	if v, ok := c.Get(httpkit.ContextRoleKey); ok {
		actor.Role, _ = v.(string)
	}
	return actor
}
