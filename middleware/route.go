package middleware

import (
	"github.com/gin-gonic/gin"

	midsec "CollabProject/middleware/security"
	jwtsec "CollabProject/tools/security"
)

// RouteOpt controls per-route behavior.
type RouteOpt struct {
	IsAuth bool
}

// Router wraps a gin engine so auth-protected routes are declared in one
// place instead of repeating the middleware at every call site.
type Router struct {
	r   gin.IRoutes
	jwt jwtsec.Options
}

func NewRouter(r gin.IRoutes, jwt jwtsec.Options) *Router {
	return &Router{r: r, jwt: jwt}
}

func (rt *Router) POST(path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		rt.r.POST(path, midsec.Middleware(rt.jwt), handler)
	} else {
		rt.r.POST(path, handler)
	}
}

func (rt *Router) GET(path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		rt.r.GET(path, midsec.Middleware(rt.jwt), handler)
	} else {
		rt.r.GET(path, handler)
	}
}

func (rt *Router) PUT(path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		rt.r.PUT(path, midsec.Middleware(rt.jwt), handler)
	} else {
		rt.r.PUT(path, handler)
	}
}
