package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"CollabProject/data/database/pg"
	"CollabProject/global/config"
	"CollabProject/logger"
	mid "CollabProject/middleware"
	chatmod "CollabProject/module/chat"
	chatsvc "CollabProject/module/chat/service"
	chatstore "CollabProject/module/chat/store"
	"CollabProject/module/project"
	projsvc "CollabProject/module/project/service"
	projstore "CollabProject/module/project/store"
	"CollabProject/module/user"
	usersvc "CollabProject/module/user/service"
	userstore "CollabProject/module/user/store"
	rtchat "CollabProject/service/chat"
	"CollabProject/service/storage"
	redisdb "CollabProject/service/storage/redis"
)

func main() {
	if err := config.Load(); err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	config.ConfigIds()

	ctx := context.Background()

	// 1) Postgres: the CRUD side and message history.
	pool, err := pg.Open(ctx, pg.Config{URL: config.Global.DatabaseURL})
	if err != nil {
		logger.Errorf("postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Errorf("migrate: %v", err)
		os.Exit(1)
	}

	// 2) Redis presence mirror. Optional: the gateway works without it,
	// other processes just can't see who is online.
	var tracker rtchat.Tracker
	if err := redisdb.Init(redisdb.Config{
		Addr:     config.Global.RedisAddr,
		Password: config.Global.RedisPassword,
		DB:       config.Global.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable, presence mirror disabled: %v", err)
	} else {
		tracker = storage.NewPresence(
			strconv.FormatInt(config.Global.NodeID, 10), config.PresenceTTL())
	}

	// 3) Domain services.
	jwtOpts := config.JWTOptions()
	userSvc := usersvc.New(userstore.New(pool), jwtOpts)
	projSvc := projsvc.New(projstore.New(pool))
	groupSvc := chatsvc.New(chatstore.New(pool))

	// 4) Realtime connection manager and its websocket edge.
	mgr := rtchat.NewManager(rtchat.Options{
		PendingQueueCap: config.Global.PendingQueueCap,
		Tracker:         tracker,
		NodeID:          strconv.FormatInt(config.Global.NodeID, 10),
	})
	ws := rtchat.NewServer(mgr, jwtOpts, groupSvc, projSvc, config.Global.SendBufferSize)

	userH := user.NewHandler(userSvc)
	projH := project.NewHandler(projSvc)
	chatH := chatmod.NewHandler(groupSvc, userSvc, mgr)

	// 5) HTTP + WebSocket.
	r := gin.New()
	r.Use(gin.Recovery())
	rt := mid.NewRouter(r, jwtOpts)

	rt.POST("/register", userH.HandlerRegister, mid.RouteOpt{})
	rt.POST("/login", userH.HandlerLogin, mid.RouteOpt{})
	rt.GET("/me", userH.HandlerMe, mid.RouteOpt{IsAuth: true})

	rt.POST("/projects", projH.HandlerCreateProject, mid.RouteOpt{IsAuth: true})
	rt.GET("/projects", projH.HandlerListProjects, mid.RouteOpt{IsAuth: true})
	rt.POST("/projects/:projectID/files", projH.HandlerCreateFile, mid.RouteOpt{IsAuth: true})
	rt.GET("/files/:fileID", projH.HandlerGetFile, mid.RouteOpt{IsAuth: true})

	rt.POST("/api/chat/groups", chatH.HandlerCreateGroup, mid.RouteOpt{IsAuth: true})
	rt.GET("/api/chat/groups", chatH.HandlerListGroups, mid.RouteOpt{IsAuth: true})
	rt.POST("/api/chat/groups/join", chatH.HandlerJoinGroup, mid.RouteOpt{IsAuth: true})
	rt.GET("/api/chat/groups/:groupID/messages", chatH.HandlerListMessages, mid.RouteOpt{IsAuth: true})
	rt.GET("/api/chat/groups/:groupID/online", chatH.HandlerOnlineMembers, mid.RouteOpt{IsAuth: true})

	// Websocket endpoints authenticate via ?token= themselves.
	r.GET("/api/chat/ws/:groupID", ws.HandleChatWS)
	r.GET("/ws/file/:fileID", ws.HandleFileWS)

	addr := fmt.Sprintf("%s:%d", config.Global.HTTPHost, config.Global.HTTPPort)
	logger.Infof("[HTTP] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("http server: %v", err)
		os.Exit(1)
	}
}
