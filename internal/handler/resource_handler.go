package handler

import (
	"net/http"

	"fueldelivery/internal/middleware"
	"fueldelivery/internal/model"
	"fueldelivery/internal/service"
	"fueldelivery/pkg/pagination"
	"fueldelivery/pkg/response"

	"github.com/gin-gonic/gin"
)

// ResourceHandler serves customer CRUD for one kind of owned record under path, and the
// admin listing under adminPath when it is set.
type ResourceHandler[T any, R service.ResourceRequest[T]] struct {
	svc       service.ResourceService[T, R]
	auth      *middleware.Auth
	path      string
	adminPath string
}

func NewResourceHandler[T any, R service.ResourceRequest[T]](svc service.ResourceService[T, R], auth *middleware.Auth, path, adminPath string) *ResourceHandler[T, R] {
	return &ResourceHandler[T, R]{svc: svc, auth: auth, path: path, adminPath: adminPath}
}

func (h *ResourceHandler[T, R]) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group(h.path)
	group.Use(h.auth.RequireRole(model.RoleCustomer))
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}

	if h.adminPath != "" {
		router.GET(h.adminPath, h.auth.RequireRole(model.RoleAdmin), h.ListAll)
	}
}

func (h *ResourceHandler[T, R]) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.svc.Create(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

func (h *ResourceHandler[T, R]) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListMine(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

func (h *ResourceHandler[T, R]) ListAll(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.svc.ListAll(c.Request.Context(), a, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Result(items, total)))
}

func (h *ResourceHandler[T, R]) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.svc.Update(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

func (h *ResourceHandler[T, R]) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), a, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": c.Param("id")}))
}
