package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/taskboard/internal/domain"
	"github.com/Strob0t/taskboard/internal/domain/task"
)

var statusEnum = mcplib.Enum(string(task.StatusTodo), string(task.StatusInProgress), string(task.StatusCompleted))

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTasksTool(),
		s.getTaskTool(),
		s.createTaskTool(),
		s.updateTaskTool(),
		s.deleteTaskTool(),
	)
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tasks",
		mcplib.WithDescription("List all tasks on the board, optionally filtered by status"),
		mcplib.WithString("status", mcplib.Description("Only return tasks in this status"), statusEnum),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTasks}
}

func (s *Server) getTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_task",
		mcplib.WithDescription("Get a single task by ID"),
		mcplib.WithString("id", mcplib.Required(), mcplib.Description("The task ID")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetTask}
}

func (s *Server) createTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("create_task",
		mcplib.WithDescription("Create a task. Description defaults to empty and status to TODO"),
		mcplib.WithString("title", mcplib.Required(), mcplib.Description("Title, 1-100 characters")),
		mcplib.WithString("description", mcplib.Description("Description, up to 500 characters")),
		mcplib.WithString("status", mcplib.Description("Initial status"), statusEnum),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCreateTask}
}

func (s *Server) updateTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("update_task",
		mcplib.WithDescription("Overwrite a task's title, description and status"),
		mcplib.WithString("id", mcplib.Required(), mcplib.Description("The task ID")),
		mcplib.WithString("title", mcplib.Required(), mcplib.Description("Title, 1-100 characters")),
		mcplib.WithString("description", mcplib.Description("Description, up to 500 characters")),
		mcplib.WithString("status", mcplib.Description("New status"), statusEnum),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUpdateTask}
}

func (s *Server) deleteTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("delete_task",
		mcplib.WithDescription("Delete a task by ID. Deleting a missing task succeeds"),
		mcplib.WithString("id", mcplib.Required(), mcplib.Description("The task ID")),
		mcplib.WithDestructiveHintAnnotation(true),
		mcplib.WithIdempotentHintAnnotation(true),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleDeleteTask}
}

func (s *Server) handleListTasks(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task service not configured"), nil
	}
	status, errResult := optionalStatus(req.GetArguments())
	if errResult != nil {
		return errResult, nil
	}
	tasks, err := s.deps.Tasks.List(ctx, status)
	if err != nil {
		return toolError("failed to list tasks", err), nil
	}
	return toolResultJSON(tasks)
}

func (s *Server) handleGetTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task service not configured"), nil
	}
	id, ok := stringArg(req.GetArguments(), "id")
	if !ok || id == "" {
		return mcplib.NewToolResultError("id is required"), nil
	}
	t, err := s.deps.Tasks.Get(ctx, id)
	if err != nil {
		return toolError("failed to get task", err), nil
	}
	return toolResultJSON(t)
}

func (s *Server) handleCreateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task service not configured"), nil
	}
	args := req.GetArguments()
	title, _ := stringArg(args, "title")
	status, errResult := optionalStatus(args)
	if errResult != nil {
		return errResult, nil
	}
	in := task.CreateRequest{Title: title, Description: optionalString(args, "description"), Status: status}
	if err := task.ValidateCreate(&in); err != nil {
		return toolError("invalid task", err), nil
	}
	t, err := s.deps.Tasks.Create(ctx, in)
	if err != nil {
		return toolError("failed to create task", err), nil
	}
	return toolResultJSON(t)
}

func (s *Server) handleUpdateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task service not configured"), nil
	}
	args := req.GetArguments()
	id, ok := stringArg(args, "id")
	if !ok || id == "" {
		return mcplib.NewToolResultError("id is required"), nil
	}
	status, errResult := optionalStatus(args)
	if errResult != nil {
		return errResult, nil
	}
	in := task.UpdateRequest{
		Title:       optionalString(args, "title"),
		Description: optionalString(args, "description"),
		Status:      status,
	}
	if err := task.ValidateUpdate(&in); err != nil {
		return toolError("invalid task", err), nil
	}
	t, err := s.deps.Tasks.Update(ctx, id, in)
	if err != nil {
		return toolError("failed to update task", err), nil
	}
	return toolResultJSON(t)
}

func (s *Server) handleDeleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task service not configured"), nil
	}
	id, ok := stringArg(req.GetArguments(), "id")
	if !ok || id == "" {
		return mcplib.NewToolResultError("id is required"), nil
	}
	if err := s.deps.Tasks.Delete(ctx, id); err != nil {
		return toolError("failed to delete task", err), nil
	}
	return mcplib.NewToolResultText(`{"deleted":true}`), nil
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok
}

func optionalString(args map[string]any, name string) *string {
	if v, ok := stringArg(args, name); ok {
		return &v
	}
	return nil
}

func optionalStatus(args map[string]any) (*task.Status, *mcplib.CallToolResult) {
	raw, ok := stringArg(args, "status")
	if !ok || raw == "" {
		return nil, nil
	}
	st, err := task.ParseStatus(raw)
	if err != nil {
		return nil, mcplib.NewToolResultError(domain.Message(err))
	}
	return &st, nil
}

// toolError reports client-facing domain messages verbatim and wraps
// anything else.
func toolError(msg string, err error) *mcplib.CallToolResult {
	if kind, ok := domain.KindOf(err); ok && kind != domain.KindStorage {
		return mcplib.NewToolResultError(domain.Message(err))
	}
	return mcplib.NewToolResultErrorFromErr(msg, err)
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
