package project

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	midsec "CollabProject/middleware/security"
	projsvc "CollabProject/module/project/service"
	"CollabProject/tools/errs"
)

type Handler struct {
	svc *projsvc.Service
}

func NewHandler(svc *projsvc.Service) *Handler { return &Handler{svc: svc} }

type createProjectReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) HandlerCreateProject(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	p, err := h.svc.CreateProject(c.Request.Context(), req.Name, userID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) HandlerListProjects(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	list, err := h.svc.ListProjects(c.Request.Context(), userID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type createFileReq struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

func (h *Handler) HandlerCreateFile(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	projectID, err := strconv.ParseInt(c.Param("projectID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	var req createFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	f, err := h.svc.CreateFile(c.Request.Context(), userID, projectID, req.Name, req.Content)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) HandlerGetFile(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	fileID, err := strconv.ParseInt(c.Param("fileID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	f, err := h.svc.GetFile(c.Request.Context(), userID, fileID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}
