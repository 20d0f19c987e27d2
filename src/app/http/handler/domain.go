package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"metadirectory/src/app/http/dto"
	"metadirectory/src/app/http/response"
	"metadirectory/src/app/middleware"
	"metadirectory/src/core/domain"
	"metadirectory/src/core/usecase"
)

// DomainHandler serves /api/v1/domains/:domain_id.
type DomainHandler struct {
	domainService *usecase.DomainService
	maxBodyBytes  int64
}

// NewDomainHandler creates a DomainHandler. maxBodyBytes caps update bodies.
func NewDomainHandler(domainService *usecase.DomainService, maxBodyBytes int64) *DomainHandler {
	return &DomainHandler{domainService: domainService, maxBodyBytes: maxBodyBytes}
}

func callerFrom(c *gin.Context) usecase.Caller {
	return usecase.Caller{
		Domain:     middleware.GetDomain(c),
		Account:    middleware.GetAccount(c),
		Credential: middleware.GetCredential(c),
	}
}

// Get returns the public snapshot of a domain.
// GET /api/v1/domains/:domain_id
func (h *DomainHandler) Get(c *gin.Context) {
	d, err := h.domainService.Get(c.Request.Context(), callerFrom(c))
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}

	info := dto.DomainInfoFromDomain(d)
	response.Write(c, response.Result{
		Status:  http.StatusOK,
		Success: true,
		Data:    gin.H{"domain": info},
		// Older domain servers read the snapshot at the top level.
		Extra: gin.H{"domain": info},
	}, "")
}

// Update applies a heartbeat or metadata update.
// PUT /api/v1/domains/:domain_id
func (h *DomainHandler) Update(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Fail(c, http.StatusRequestEntityTooLarge, domain.MsgBadlyFormed, requestID)
			return
		}
		response.BadRequest(c, domain.MsgBadlyFormed, requestID)
		return
	}

	res, err := h.domainService.Update(c.Request.Context(), callerFrom(c), body)
	if err != nil {
		_ = c.Error(err)
		response.FromDomainError(c, err, requestID)
		return
	}

	response.OK(c, dto.UpdateInfo{
		DomainID:            middleware.GetDomain(c).ID,
		TimeOfLastHeartbeat: res.HeartbeatAt.Format(time.RFC3339),
	})
}

// Delete removes a domain and its places. Admin only.
// DELETE /api/v1/domains/:domain_id
func (h *DomainHandler) Delete(c *gin.Context) {
	if _, err := h.domainService.Delete(c.Request.Context(), callerFrom(c)); err != nil {
		_ = c.Error(err)
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.Write(c, response.Result{Status: http.StatusOK, Success: true}, "")
}
