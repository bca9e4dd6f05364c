// Package mcpserver exposes the vault operations as MCP tools over the
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/vault"
)

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp *server.MCPServer
	svc *vault.Service
}

// New creates an MCP server with every vault tool registered.
func New(svc *vault.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("read_notes",
		mcp.WithDescription("Read the contents of multiple notes. Each note's content is returned with its path as a reference."),
		mcp.WithArray("paths", mcp.Required(),
			mcp.Description("List of note paths to read, relative to the vault root"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.readNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search for notes by name. The query matches as a case-insensitive substring or as a glob pattern (* matches any sequence)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name or pattern to search for")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("write_note",
		mcp.WithDescription("Create a new note or overwrite an existing one. Missing parent directories are created."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content to write")),
	), s.writeNote)

	s.mcp.AddTool(mcp.NewTool("append_note",
		mcp.WithDescription("Append content to an existing note, or create it if missing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content to append")),
	), s.appendNote)

	s.mcp.AddTool(mcp.NewTool("extract_links",
		mcp.WithDescription("Extract all wiki links ([[note]]) and markdown links ([text](note.md)) from a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to analyze")),
	), s.extractLinks)

	s.mcp.AddTool(mcp.NewTool("find_backlinks",
		mcp.WithDescription("Find all notes that link to the given note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.findBacklinks)

	s.mcp.AddTool(mcp.NewTool("extract_metadata",
		mcp.WithDescription("Extract frontmatter, inline fields (Key:: Value), and tags from a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to analyze")),
	), s.extractMetadata)

	s.mcp.AddTool(mcp.NewTool("search_by_tags",
		mcp.WithDescription("Find notes carrying the given tags, from body #tags or the frontmatter tags field."),
		mcp.WithArray("tags", mcp.Required(),
			mcp.Description("Tags to search for (with or without the # prefix)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("matchAll", mcp.Description("Require every tag to be present (default: any)")),
	), s.searchByTags)

	s.mcp.AddTool(mcp.NewTool("create_link",
		mcp.WithDescription("Append a wiki link to another note at the end of a note."),
		mcp.WithString("fromPath", mcp.Required(), mcp.Description("Note to add the link to")),
		mcp.WithString("toPath", mcp.Required(), mcp.Description("Note the link points to")),
		mcp.WithString("linkText", mcp.Description("Optional alias for the link")),
	), s.createLink)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout until ctx is cancelled or
// stdin reaches EOF.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen runs the MCP server on the given transport streams.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// stringSlice coerces an array argument into []string. A missing key or a
// non-string element is a shape error.
func stringSlice(req mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil, fmt.Errorf("required argument %q not found", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *Server) readNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := stringSlice(req, "paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		content, err := s.svc.ReadNote(p)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%s: Error - %s", p, err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:\n%s", p, content))
	}
	return mcp.NewToolResultText(strings.Join(parts, "\n---\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcome, err := s.svc.SearchNotes(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(outcome.Paths) == 0 {
		return mcp.NewToolResultText("No matches found"), nil
	}
	text := strings.Join(outcome.Paths, "\n")
	if outcome.Overflow > 0 {
		text += fmt.Sprintf("\n\n... and %d more matches (showing first %d)", outcome.Overflow, vault.SearchLimit)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) writeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.WriteNote(path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully wrote note: %s", path)), nil
}

func (s *Server) appendNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AppendNote(path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully appended to note: %s", path)), nil
}

func (s *Server) extractLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ls, err := s.svc.ExtractLinks(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"wikiLinks":     emptyIfNil(ls.WikiLinks),
		"markdownLinks": emptyIfNil(ls.MarkdownLinks),
		"totalLinks":    ls.Total(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.FindBacklinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("No backlinks found"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d backlinks:\n%s", len(bl), strings.Join(bl, "\n"))), nil
}

func (s *Server) extractMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.svc.ExtractMetadata(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"frontmatter": md.Frontmatter,
		"fields":      md.Fields,
		"tags":        emptyIfNil(md.Tags),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchByTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := stringSlice(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matchAll := req.GetBool("matchAll", false)

	paths, err := s.svc.SearchByTags(ctx, tags, matchAll)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No notes found with tags: %s", strings.Join(tags, ", "))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d notes:\n%s", len(paths), strings.Join(paths, "\n"))), nil
}

func (s *Server) createLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromPath, err := req.RequireString("fromPath")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	toPath, err := req.RequireString("toPath")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	linkText := req.GetString("linkText", "")

	if err := s.svc.CreateLink(fromPath, toPath, linkText); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully created link from %s to %s", fromPath, toPath)), nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
