package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	formapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/application/identity"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/dto"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/middleware"
)

// WizardHandler serves the client side of the form
type WizardHandler struct {
	BaseHandler
	wizard *formapp.WizardService
	auth   *identity.AuthService
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(wizard *formapp.WizardService, auth *identity.AuthService) *WizardHandler {
	return &WizardHandler{
		wizard: wizard,
		auth:   auth,
	}
}

// SessionResponse is the client capability issued for a form token
type SessionResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Token        string    `json:"token"`
}

// OpenSession exchanges an access code for a session token.
// POST /api/v1/forms/session
func (h *WizardHandler) OpenSession(c *gin.Context) {
	var req identity.SessionInput
	if !h.BindJSON(c, &req) {
		return
	}

	issued, err := h.auth.OpenClientSession(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SessionResponse{
		SessionToken: issued.Token,
		ExpiresAt:    issued.ExpiresAt,
		Token:        form.NormalizeToken(req.Token),
	})
}

// Save stores a draft or submits a step, depending on isDraft. Success and
// failure both keep the browser client's flat shape rather than the data envelope.
// POST /api/v1/forms/save
func (h *WizardHandler) Save(c *gin.Context) {
	var req formapp.SaveStepRequest
	if !h.BindSaveJSON(c, &req) {
		return
	}

	req.Token = form.NormalizeToken(req.Token)
	if req.Token == "" {
		h.SaveError(c, http.StatusBadRequest, dto.ErrCodeInvalidFormToken, "formToken is required")
		return
	}
	if !middleware.SessionAllows(c, req.Token) {
		h.SaveError(c, http.StatusForbidden, dto.ErrCodeForbidden, "This session does not grant access to this form")
		return
	}
	c.Request = c.Request.WithContext(logger.WithFormToken(c.Request.Context(), req.Token))

	resp, err := h.wizard.Save(c.Request.Context(), req)
	if err != nil {
		h.HandleSaveError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resume returns the stored record for the path token. A 404 tells the
// client to start a fresh form.
// GET /api/v1/forms/:token
func (h *WizardHandler) Resume(c *gin.Context) {
	resp, err := h.wizard.Resume(c.Request.Context(), middleware.GetFormToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Steps lists the wizard steps and their required fields.
// GET /api/v1/steps
func (h *WizardHandler) Steps(c *gin.Context) {
	h.Success(c, formapp.ToStepDefinitionResponses())
}
