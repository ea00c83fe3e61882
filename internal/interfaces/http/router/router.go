package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts domain groups under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithMiddleware adds middleware run for every route under the API prefix
func WithMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, middleware...)
	}
}

// NewRouter creates a Router serving /api/v1 unless configured otherwise
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a group for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Prefix returns the API prefix, e.g. /api/v1
func (r *Router) Prefix() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registered group on the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.Prefix(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Routes lists "METHOD path" for every registered group route, including the API prefix
func (r *Router) Routes() []string {
	var out []string
	for _, registrar := range r.registrars {
		lister, ok := registrar.(interface{ Routes() []string })
		if !ok {
			continue
		}
		for _, rt := range lister.Routes() {
			method, p, _ := strings.Cut(rt, " ")
			out = append(out, method+" "+path.Join(r.Prefix(), p))
		}
	}
	return out
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup collects the routes of one bounded context (sales, catalog,
// security, ...) together with the middleware they share
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	subgroups  []*DomainGroup
}

// NewDomainGroup creates a group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the bounded context the group belongs to
func (dg *DomainGroup) Name() string { return dg.name }

// Prefix returns the path the group is mounted at
func (dg *DomainGroup) Prefix() string { return dg.prefix }

// Use adds middleware shared by every route of the group and its subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, relativePath string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: relativePath, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, relativePath, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, relativePath, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, relativePath, handlers)
}

// Group creates a subgroup inheriting this group's prefix and middleware
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, sub := range dg.subgroups {
		sub.RegisterRoutes(group)
	}
}

// Routes lists "METHOD path" for every route of the group, relative to the API prefix
func (dg *DomainGroup) Routes() []string {
	return dg.collect("/")
}

func (dg *DomainGroup) collect(parent string) []string {
	base := path.Join(parent, dg.prefix)
	var out []string
	for _, rt := range dg.routes {
		p := base
		if rt.path != "" {
			p = path.Join(base, rt.path)
		}
		out = append(out, rt.method+" "+p)
	}
	for _, sub := range dg.subgroups {
		out = append(out, sub.collect(base)...)
	}
	return out
}
