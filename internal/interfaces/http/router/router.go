package router

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// Router mounts domain groups under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	groups     []*DomainGroup
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion overrides the "v1" path segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a group for Setup. Nil groups are ignored so optional
// handlers can be passed through unconditionally.
func (r *Router) Register(group *DomainGroup) *Router {
	if group != nil {
		r.groups = append(r.groups, group)
	}
	return r
}

// Setup mounts every registered group and returns the mounted routes as
// sorted "METHOD /path" strings.
func (r *Router) Setup() []string {
	api := r.engine.Group("/api/" + r.apiVersion)
	var mounted []string
	for _, g := range r.groups {
		mounted = append(mounted, g.mount(api)...)
	}
	sort.Strings(mounted)
	return mounted
}

// DomainGroup is the route set of one bounded context (lots, payments, ...)
// sharing a path prefix and optional middleware.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates an empty group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (g *DomainGroup) Name() string { return g.name }

// Prefix returns the path prefix
func (g *DomainGroup) Prefix() string { return g.prefix }

// Use adds group middleware; it runs before every route of the group.
func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// GET adds a read route
func (g *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{http.MethodGet, path, handlers})
	return g
}

// POST adds a command route
func (g *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{http.MethodPost, path, handlers})
	return g
}

func (g *DomainGroup) mount(api *gin.RouterGroup) []string {
	rg := api.Group(g.prefix, g.middleware...)
	mounted := make([]string, 0, len(g.routes))
	for _, rt := range g.routes {
		rg.Handle(rt.method, rt.path, rt.handlers...)
		mounted = append(mounted, rt.method+" "+joinPath(rg.BasePath(), rt.path))
	}
	return mounted
}

func joinPath(base, path string) string {
	if path == "" {
		return base
	}
	return base + path
}
