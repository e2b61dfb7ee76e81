package mcp

import (
	"context"
	"encoding/json"
	"sort"
)

// ToolHandler executes one named tool
type ToolHandler interface {
	GetName() string
	GetDescription() string
	GetInputSchema() JSONSchema
	Execute(ctx context.Context, arguments json.RawMessage) (*CallToolResult, error)
}

// ResourceHandler serves one resource URI
type ResourceHandler interface {
	GetURI() string
	GetName() string
	GetDescription() string
	GetMimeType() string
	Read(ctx context.Context) (*ReadResourceResult, error)
}

// Registry holds the tools and resources exposed by a Service
type Registry struct {
	tools     map[string]ToolHandler
	resources map[string]ResourceHandler
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]ToolHandler),
		resources: make(map[string]ResourceHandler),
	}
}

// RegisterTool adds handlers, replacing any earlier tool with the same name
func (r *Registry) RegisterTool(handlers ...ToolHandler) {
	for _, h := range handlers {
		r.tools[h.GetName()] = h
	}
}

func (r *Registry) RegisterResource(handlers ...ResourceHandler) {
	for _, h := range handlers {
		r.resources[h.GetURI()] = h
	}
}

func (r *Registry) Tool(name string) (ToolHandler, bool) {
	h, ok := r.tools[name]
	return h, ok
}

func (r *Registry) Resource(uri string) (ResourceHandler, bool) {
	h, ok := r.resources[uri]
	return h, ok
}

// ListTools returns the registered tools ordered by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, h := range r.tools {
		tools = append(tools, Tool{
			Name:        h.GetName(),
			Description: h.GetDescription(),
			InputSchema: h.GetInputSchema(),
		})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// ListResources returns the registered resources ordered by URI
func (r *Registry) ListResources() []Resource {
	resources := make([]Resource, 0, len(r.resources))
	for _, h := range r.resources {
		resources = append(resources, Resource{
			URI:         h.GetURI(),
			Name:        h.GetName(),
			Description: h.GetDescription(),
			MimeType:    h.GetMimeType(),
		})
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })
	return resources
}
