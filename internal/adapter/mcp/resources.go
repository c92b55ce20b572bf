package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/taskboard/internal/domain/task"
)

// registerResources registers the board snapshot resources: every task and
// one resource per status.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"taskboard://tasks",
			"All Tasks",
			mcplib.WithResourceDescription("Every task on the board"),
			mcplib.WithMIMEType("application/json"),
		),
		s.tasksResource(nil),
	)

	for _, st := range task.Statuses() {
		status := st
		s.mcpServer.AddResource(
			mcplib.NewResource(
				"taskboard://tasks/status/"+string(status),
				"Tasks "+string(status),
				mcplib.WithResourceDescription("Tasks in status "+string(status)),
				mcplib.WithMIMEType("application/json"),
			),
			s.tasksResource(&status),
		)
	}
}

func (s *Server) tasksResource(status *task.Status) func(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return func(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		if s.deps.Tasks == nil {
			return []mcplib.ResourceContents{
				mcplib.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     `{"error":"task service not configured"}`,
				},
			}, nil
		}
		tasks, err := s.deps.Tasks.List(ctx, status)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(tasks)
		if err != nil {
			return nil, err
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
