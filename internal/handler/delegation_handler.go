package handler

import (
	"errors"
	"net/http"

	"backend/internal/caretaking"
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DelegationHandler struct {
	delegationService service.DelegationService
}

// NewDelegationHandler sets up the routing dependencies for caretaker endpoints
func NewDelegationHandler(delegationService service.DelegationService) *DelegationHandler {
	return &DelegationHandler{delegationService: delegationService}
}

// RegisterRoutes binds the caretaker and admin endpoints
func (h *DelegationHandler) RegisterRoutes(router *gin.RouterGroup) {
	caretakers := router.Group("/caretakers", middleware.RequireAuth())
	{
		caretakers.POST("/requests", h.SubmitRequest)
		caretakers.GET("/requests", h.ListRequests)
		caretakers.GET("/status", h.CaretakerStatus)
		caretakers.GET("/eligible", h.EligibleCaretakers)
		caretakers.PUT("/requests/:id/approve", h.transition(caretaking.TransitionApprove))
		caretakers.PUT("/requests/:id/reject", h.transition(caretaking.TransitionReject))
		caretakers.PUT("/requests/:id/cancel", h.transition(caretaking.TransitionCancel))
		caretakers.PUT("/active/:id", h.ExtendActiveDelegation)
		caretakers.DELETE("/active/:id", h.RemoveActiveDelegation)
	}

	admin := router.Group("/admin", middleware.RequireSuperuser())
	{
		admin.GET("/tasks", h.ListAdminTasks)
	}
}

// viewerFromContext rebuilds the authenticated caller's identity from the
// values RequireAuth stored
func viewerFromContext(c *gin.Context) (caretaking.Viewer, bool) {
	id, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		return caretaking.Viewer{}, false
	}
	return caretaking.Viewer{ID: id, IsSuperuser: c.GetBool("isSuperuser")}, true
}

// writeDomainError maps domain errors onto HTTP statuses: invalid input is
// 400, guard and lifecycle conflicts are 409, permission failures 403,
// missing records 404, everything else 500.
func writeDomainError(c *gin.Context, err error) {
	if v, ok := caretaking.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, v.Error()))
		return
	}

	switch {
	case errors.Is(err, caretaking.ErrChainConflict),
		errors.Is(err, caretaking.ErrDuplicateActiveDelegation),
		errors.Is(err, caretaking.ErrInvalidTransition):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, caretaking.ErrUnauthorized):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// SubmitRequest handles POST /caretakers/requests
// @Summary      Submit delegation request
// @Description  Proposes a caretaker for a primary user; superusers may approve immediately
// @Tags         caretakers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitRequestDTO  true  "Delegation Request Payload"
// @Success      201      {object}  response.Response{data=service.DelegationRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /caretakers/requests [post]
func (h *DelegationHandler) SubmitRequest(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	var req service.SubmitRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.delegationService.SubmitRequest(c.Request.Context(), req, viewer)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// transition builds the handler for the approve/reject/cancel endpoints;
// they differ only in the transition applied
func (h *DelegationHandler) transition(t caretaking.Transition) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
			return
		}

		result, err := h.delegationService.ApplyTransition(c.Request.Context(), c.Param("id"), t, viewer)
		if err != nil {
			writeDomainError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

// ListRequests handles GET /caretakers/requests with direction/status filters
// @Summary      List delegation requests
// @Description  Lists the caller's delegation requests filtered by direction (incoming/outgoing) and status
// @Tags         caretakers
// @Produce      json
// @Security     BearerAuth
// @Param        direction  query     string  false  "incoming or outgoing"
// @Param        status     query     string  false  "pending, approved, rejected or cancelled"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /caretakers/requests [get]
func (h *DelegationHandler) ListRequests(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	p := pagination.Parse(c)
	requests, total, err := h.delegationService.ListRequests(c.Request.Context(), viewer, c.Query("direction"), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "requests", requests, total, p.Page, p.Limit))
}

// CaretakerStatus handles GET /caretakers/status
// @Summary      Caretaker status
// @Description  Returns the caller's pending requests in both directions and their active delegation
// @Tags         caretakers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.CaretakerStatusResponse}
// @Failure      500  {object}  response.Response
// @Router       /caretakers/status [get]
func (h *DelegationHandler) CaretakerStatus(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	status, err := h.delegationService.CheckCaretakerStatus(c.Request.Context(), viewer)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// EligibleCaretakers handles GET /caretakers/eligible
// @Summary      List eligible caretakers
// @Description  Lists users the caller may propose as caretaker, excluding their delegation chain
// @Tags         caretakers
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Match against display name or email"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /caretakers/eligible [get]
func (h *DelegationHandler) EligibleCaretakers(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	p := pagination.Parse(c)
	users, total, err := h.delegationService.EligibleCaretakers(c.Request.Context(), viewer, c.Query("search"), p.Page, p.Limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "users", users, total, p.Page, p.Limit))
}

// ListAdminTasks handles GET /admin/tasks
// @Summary      List admin tasks
// @Description  Lists all pending delegation requests for administrator review, oldest first
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /admin/tasks [get]
func (h *DelegationHandler) ListAdminTasks(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	p := pagination.Parse(c)
	tasks, total, err := h.delegationService.ListAdminTasks(c.Request.Context(), viewer, p.Page, p.Limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "tasks", tasks, total, p.Page, p.Limit))
}

// ExtendActiveDelegation handles PUT /caretakers/active/:id
// @Summary      Extend active delegation
// @Description  Replaces an active delegation's end date with a later one; allowed for the caretaker holding it and for superusers
// @Tags         caretakers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Active Delegation ID"
// @Param        payload  body      service.ExtendDelegationDTO  true  "Extension Payload"
// @Success      200      {object}  response.Response{data=service.ActiveDelegationResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /caretakers/active/{id} [put]
func (h *DelegationHandler) ExtendActiveDelegation(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	var req service.ExtendDelegationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.delegationService.ExtendActiveDelegation(c.Request.Context(), c.Param("id"), req.EndDate, viewer)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RemoveActiveDelegation handles DELETE /caretakers/active/:id
// @Summary      Remove active delegation
// @Description  Ends an active delegation; allowed for the caretaker holding it and for superusers
// @Tags         caretakers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Active Delegation ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /caretakers/active/{id} [delete]
func (h *DelegationHandler) RemoveActiveDelegation(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	if err := h.delegationService.RemoveActiveDelegation(c.Request.Context(), c.Param("id"), viewer); err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Delegation removed"))
}
