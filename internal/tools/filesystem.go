package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mentorkit/mentor/internal/session"
)

const validActions = "read/write/edit/delete/mkdir"

// fileSystem operates on files inside the session's workspace directory.
// Paths are resolved against the workspace root and must stay inside it.
func (e *Executor) fileSystem(params map[string]any, sess *session.Session) Result {
	action := stringParam(params, "action")
	path := stringParam(params, "path")
	content := stringParam(params, "content")
	editInstruction := stringParam(params, "edit_instruction")

	if action == "" {
		return errResult("missing required parameter: action",
			"provide an action parameter, one of "+validActions)
	}
	if path == "" {
		return errResult("missing required parameter: path",
			"provide a path parameter naming the file or directory")
	}

	switch action {
	case "read", "write", "edit", "delete", "mkdir":
	default:
		return errResult(fmt.Sprintf("invalid action: %s", action),
			"action must be one of "+validActions)
	}

	if action == "write" && content == "" {
		return errResult("write requires a content parameter",
			"provide a content parameter with the text to write")
	}
	if action == "edit" && editInstruction == "" {
		return errResult("edit requires an edit_instruction parameter",
			"provide an edit_instruction parameter, format: old text->new text")
	}

	root := e.store.Dir(sess.ID)
	fullPath, ok := containedPath(root, path)
	if !ok {
		return errResult("illegal path", "the path must stay inside the workspace")
	}

	switch action {
	case "read":
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return errResult(fmt.Sprintf("file not found: %s", path), "check that the path is correct")
		}
		return Result{Success: true, Content: string(data)}

	case "write":
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return errResult(err.Error(), "")
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return errResult(err.Error(), "")
		}
		return Result{Success: true, Message: fmt.Sprintf("file written: %s", path)}

	case "edit":
		original, err := os.ReadFile(fullPath)
		if err != nil {
			return errResult(fmt.Sprintf("file not found: %s", path), "check that the path is correct")
		}
		oldText, newText, found := strings.Cut(editInstruction, "->")
		if !found {
			return errResult("malformed edit_instruction", "format must be: old text->new text")
		}
		modified := strings.ReplaceAll(string(original),
			strings.TrimSpace(oldText), strings.TrimSpace(newText))
		if err := os.WriteFile(fullPath, []byte(modified), 0o644); err != nil {
			return errResult(err.Error(), "")
		}
		return Result{Success: true, Message: fmt.Sprintf("file edited: %s", path)}

	case "delete":
		if _, err := os.Stat(fullPath); err != nil {
			return errResult(fmt.Sprintf("file not found: %s", path), "check that the path is correct")
		}
		if err := os.Remove(fullPath); err != nil {
			return errResult(err.Error(), "")
		}
		return Result{Success: true, Message: fmt.Sprintf("file deleted: %s", path)}

	default: // mkdir
		if err := os.MkdirAll(fullPath, 0o755); err != nil {
			return errResult(err.Error(), "")
		}
		return Result{Success: true, Message: fmt.Sprintf("directory created: %s", path)}
	}
}

// containedPath resolves rel against root and rejects anything escaping it.
func containedPath(root, rel string) (string, bool) {
	full := filepath.Clean(filepath.Join(root, rel))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
