package server

import (
	"context"
	"sort"
	"strings"

	"github.com/kbukum/phrame/component"
	"github.com/kbukum/phrame/observability"
)

const componentName = "http-server"

var (
	_ component.Component         = (*Component)(nil)
	_ component.Describable       = (*Component)(nil)
	_ observability.HealthChecker = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

// NewComponent returns a component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string { return componentName }

func (c *Component) Start(ctx context.Context) error {
	return c.server.Start(ctx)
}

func (c *Component) Stop(ctx context.Context) error {
	return c.server.Stop(ctx)
}

// CheckHealth reports down until the listener is bound.
func (c *Component) CheckHealth(context.Context) observability.Health {
	h := observability.Health{Name: componentName, Status: observability.HealthStatusUp}
	if c.server.listener == nil {
		h.Status, h.Message = observability.HealthStatusDown, "not listening"
	}
	return h
}

func (c *Component) Describe() component.Description {
	cfg := c.server.config
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: c.server.Addr(),
		Port:    cfg.Port,
	}
}

// Route is one registered route for the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// Routes lists the registered routes, API routes first, each group sorted
// by path.
func (c *Component) Routes() []Route {
	infos := c.server.engine.Routes()
	sort.SliceStable(infos, func(i, j int) bool {
		ai, aj := strings.HasPrefix(infos[i].Path, "/api/"), strings.HasPrefix(infos[j].Path, "/api/")
		if ai != aj {
			return ai
		}
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].Method < infos[j].Method
	})

	out := make([]Route, len(infos))
	for i, r := range infos {
		out[i] = Route{Method: r.Method, Path: r.Path, Handler: shortHandler(r.Handler)}
	}
	return out
}

// shortHandler trims a gin handler name such as
// "github.com/kbukum/phrame/server.(*API).addTranscript-fm" to
// "addTranscript".
func shortHandler(name string) string {
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
