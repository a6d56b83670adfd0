package handler

import (
	"github.com/gin-gonic/gin"
	formapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/application/identity"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/middleware"
)

// AdminHandler serves the administrator dashboard
type AdminHandler struct {
	BaseHandler
	admin *formapp.AdminService
	auth  *identity.AuthService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *formapp.AdminService, auth *identity.AuthService) *AdminHandler {
	return &AdminHandler{
		admin: admin,
		auth:  auth,
	}
}

// Login authenticates the administrator.
// POST /api/v1/admin/auth/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req identity.LoginInput
	if !h.BindJSON(c, &req) {
		return
	}

	issued, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, issued)
}

// ListClients returns a filtered page of clients.
// GET /api/v1/admin/clients
func (h *AdminHandler) ListClients(c *gin.Context) {
	var filter formapp.ListClientsFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	items, total, err := h.admin.ListClients(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	defaults := shared.DefaultFilter()
	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = defaults.Page
	}
	if pageSize <= 0 {
		pageSize = defaults.PageSize
	}
	h.SuccessWithMeta(c, items, total, page, pageSize)
}

// CreateClient issues a token for a new client.
// POST /api/v1/admin/clients
func (h *AdminHandler) CreateClient(c *gin.Context) {
	var req formapp.CreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	summary, err := h.admin.CreateClient(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, summary)
}

// Stats returns the dashboard counters.
// GET /api/v1/admin/clients/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetClient returns one client with snapshots and audit log.
// GET /api/v1/admin/clients/:token
func (h *AdminHandler) GetClient(c *gin.Context) {
	detail, err := h.admin.GetClient(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// SetPayment changes payment status and amounts.
// PUT /api/v1/admin/clients/:token/payment
func (h *AdminHandler) SetPayment(c *gin.Context) {
	var req formapp.SetPaymentStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	summary, err := h.admin.SetPaymentStatus(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// AddComment appends a comment signed by the logged-in admin.
// POST /api/v1/admin/clients/:token/comments
func (h *AdminHandler) AddComment(c *gin.Context) {
	var req formapp.AddCommentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	summary, err := h.admin.AddComment(c.Request.Context(), c.Param("token"), middleware.GetJWTUsername(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, summary)
}

// SetActive enables or disables the client's wizard.
// PUT /api/v1/admin/clients/:token/active
func (h *AdminHandler) SetActive(c *gin.Context) {
	var req formapp.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	summary, err := h.admin.SetActive(c.Request.Context(), c.Param("token"), *req.IsActive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// RequestDelete registers one click of the multi-click delete.
// POST /api/v1/admin/clients/:token/delete
func (h *AdminHandler) RequestDelete(c *gin.Context) {
	confirmation, err := h.admin.RequestDelete(c.Request.Context(), middleware.GetJWTUsername(c), c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, confirmation)
}

// CancelDelete clears the admin's pending delete clicks.
// DELETE /api/v1/admin/clients/:token/delete
func (h *AdminHandler) CancelDelete(c *gin.Context) {
	token := c.Param("token")
	if err := h.admin.CancelDelete(c.Request.Context(), middleware.GetJWTUsername(c), token); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"cancelled": true})
}

// Export writes the client's record to object storage.
// POST /api/v1/admin/clients/:token/export
func (h *AdminHandler) Export(c *gin.Context) {
	resp, err := h.admin.ExportClient(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
