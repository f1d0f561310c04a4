// Package memory implements the filesystem backend for the Anthropic
// memory tool. All tool paths live under the virtual /memories directory
// and are sandboxed to a configured root on the host filesystem.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VirtualRoot is the directory prefix the model uses in tool paths.
const VirtualRoot = "/memories"

// Command holds one memory tool invocation as sent by the model.
type Command struct {
	Command    string `json:"command"`
	Path       string `json:"path,omitempty"`
	FileText   string `json:"file_text,omitempty"`
	ViewRange  []int  `json:"view_range,omitempty"`
	OldStr     string `json:"old_str,omitempty"`
	NewStr     string `json:"new_str,omitempty"`
	InsertLine int    `json:"insert_line,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
	OldPath    string `json:"old_path,omitempty"`
	NewPath    string `json:"new_path,omitempty"`
}

// Store executes memory tool commands against a sandboxed directory tree.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve memory root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create memory root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Execute runs one tool command and returns the text result to hand back
// to the model. Errors are returned for the caller to report as tool errors.
func (s *Store) Execute(cmd Command) (string, error) {
	switch cmd.Command {
	case "view":
		return s.view(cmd.Path, cmd.ViewRange)
	case "create":
		return s.create(cmd.Path, cmd.FileText)
	case "str_replace":
		return s.strReplace(cmd.Path, cmd.OldStr, cmd.NewStr)
	case "insert":
		return s.insert(cmd.Path, cmd.InsertLine, cmd.InsertText)
	case "delete":
		return s.delete(cmd.Path)
	case "rename":
		return s.rename(cmd.OldPath, cmd.NewPath)
	default:
		return "", fmt.Errorf("unknown memory command: %q", cmd.Command)
	}
}

// resolve maps a virtual /memories path to a host path inside the root.
// Anything that would escape the sandbox is rejected.
func (s *Store) resolve(path string) (string, error) {
	if path != VirtualRoot && !strings.HasPrefix(path, VirtualRoot+"/") {
		return "", fmt.Errorf("path must be under %s, got %q", VirtualRoot, path)
	}
	rel := strings.TrimPrefix(path, VirtualRoot)
	rel = strings.TrimPrefix(rel, "/")

	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", fmt.Errorf("path traversal not allowed: %q", path)
		}
	}

	host := filepath.Join(s.root, filepath.FromSlash(rel))
	host = filepath.Clean(host)
	if host != s.root && !strings.HasPrefix(host, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes memory root: %q", path)
	}
	return host, nil
}

func (s *Store) view(path string, viewRange []int) (string, error) {
	host, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(host)
	if err != nil {
		return "", fmt.Errorf("view %s: %w", path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(host)
		if err != nil {
			return "", fmt.Errorf("view %s: %w", path, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Sprintf("Directory: %s\n%s", path, strings.Join(names, "\n")), nil
	}

	data, err := os.ReadFile(host)
	if err != nil {
		return "", fmt.Errorf("view %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	start, end := 1, len(lines)
	if len(viewRange) == 2 {
		start, end = viewRange[0], viewRange[1]
		if start < 1 || start > len(lines) || end < start {
			return "", fmt.Errorf("invalid view range [%d, %d] for %d lines", start, end, len(lines))
		}
		if end > len(lines) {
			end = len(lines)
		}
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%d: %s\n", i, lines[i-1])
	}
	return b.String(), nil
}

func (s *Store) create(path, fileText string) (string, error) {
	host, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := os.WriteFile(host, []byte(fileText), 0o644); err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	return fmt.Sprintf("File created: %s", path), nil
}

func (s *Store) strReplace(path, oldStr, newStr string) (string, error) {
	host, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		return "", fmt.Errorf("str_replace %s: %w", path, err)
	}

	content := string(data)
	switch count := strings.Count(content, oldStr); {
	case count == 0:
		return "", fmt.Errorf("str_replace %s: text not found", path)
	case count > 1:
		return "", fmt.Errorf("str_replace %s: text occurs %d times, must be unique", path, count)
	}

	content = strings.Replace(content, oldStr, newStr, 1)
	if err := os.WriteFile(host, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("str_replace %s: %w", path, err)
	}
	return fmt.Sprintf("File updated: %s", path), nil
}

func (s *Store) insert(path string, insertLine int, insertText string) (string, error) {
	host, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	if insertLine < 0 || insertLine > len(lines) {
		return "", fmt.Errorf("insert %s: line %d out of range (0-%d)", path, insertLine, len(lines))
	}

	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:insertLine]...)
	updated = append(updated, insertText)
	updated = append(updated, lines[insertLine:]...)

	if err := os.WriteFile(host, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("insert %s: %w", path, err)
	}
	return fmt.Sprintf("Text inserted at line %d in %s", insertLine, path), nil
}

func (s *Store) delete(path string) (string, error) {
	host, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if host == s.root {
		return "", fmt.Errorf("cannot delete %s itself", VirtualRoot)
	}
	if err := os.RemoveAll(host); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return fmt.Sprintf("Deleted: %s", path), nil
}

func (s *Store) rename(oldPath, newPath string) (string, error) {
	oldHost, err := s.resolve(oldPath)
	if err != nil {
		return "", err
	}
	newHost, err := s.resolve(newPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(newHost), 0o755); err != nil {
		return "", fmt.Errorf("rename %s: %w", oldPath, err)
	}
	if err := os.Rename(oldHost, newHost); err != nil {
		return "", fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
	}
	return fmt.Sprintf("Renamed %s to %s", oldPath, newPath), nil
}
