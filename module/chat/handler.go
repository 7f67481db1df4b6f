package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	midsec "CollabProject/middleware/security"
	chatsvc "CollabProject/module/chat/service"
	usersvc "CollabProject/module/user/service"
	rtchat "CollabProject/service/chat"
	"CollabProject/tools/errs"
)

type Handler struct {
	svc   *chatsvc.Service
	users *usersvc.Service
	mgr   *rtchat.Manager
}

func NewHandler(svc *chatsvc.Service, users *usersvc.Service, mgr *rtchat.Manager) *Handler {
	return &Handler{svc: svc, users: users, mgr: mgr}
}

type createGroupReq struct {
	Name      string `json:"name" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

func (h *Handler) HandlerCreateGroup(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	g, err := h.svc.CreateGroup(c.Request.Context(), req.Name, req.IsPrivate, userID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) HandlerListGroups(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	list, err := h.svc.ListGroups(c.Request.Context(), userID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type joinGroupReq struct {
	JoinCode string `json:"join_code" binding:"required"`
}

func (h *Handler) HandlerJoinGroup(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	var req joinGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	g, err := h.svc.JoinByCode(c.Request.Context(), userID, req.JoinCode)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) HandlerListMessages(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	groupID, err := strconv.ParseInt(c.Param("groupID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	msgs, err := h.svc.ListMessages(c.Request.Context(), userID, groupID, limit)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// HandlerOnlineMembers reports who currently holds a live connection to the
// group, enriched with usernames. The registry hands back identity only.
func (h *Handler) HandlerOnlineMembers(c *gin.Context) {
	userID, ok := midsec.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	groupID, err := strconv.ParseInt(c.Param("groupID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	member, err := h.svc.IsMember(c.Request.Context(), userID, groupID)
	if err != nil {
		errs.Respond(c, err)
		return
	}
	if !member {
		errs.Respond(c, errs.ErrNotMember)
		return
	}

	online := h.mgr.OnlineMembers(rtchat.GroupRoom(groupID))
	ids := make([]int64, 0, len(online))
	for _, s := range online {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	names, err := h.users.Usernames(c.Request.Context(), ids)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, gin.H{"id": id, "username": names[id], "is_online": true})
	}
	c.JSON(http.StatusOK, out)
}
