package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	midsec "CollabProject/middleware/security"
	usersvc "CollabProject/module/user/service"
	"CollabProject/tools/errs"
)

type Handler struct {
	svc *usersvc.Service
}

func NewHandler(svc *usersvc.Service) *Handler { return &Handler{svc: svc} }

type registerReq struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) HandlerRegister(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type loginReq struct {
	Identifier string `json:"identifier" binding:"required"` // email or username
	Password   string `json:"password" binding:"required"`
}

func (h *Handler) HandlerLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	token, expireAt, u, err := h.svc.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expireAt.Unix(),
		"user":         u,
	})
}

func (h *Handler) HandlerMe(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	u, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
