package memory

import (
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestStore_CreateAndView(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Execute(Command{
		Command:  "create",
		Path:     "/memories/notes.md",
		FileText: "first\nsecond\nthird",
	}); err != nil {
		t.Fatalf("create error = %v", err)
	}

	out, err := s.Execute(Command{Command: "view", Path: "/memories/notes.md"})
	if err != nil {
		t.Fatalf("view error = %v", err)
	}
	if !strings.Contains(out, "1: first") || !strings.Contains(out, "3: third") {
		t.Errorf("view output missing numbered lines:\n%s", out)
	}
}

func TestStore_ViewDirectory(t *testing.T) {
	s := newTestStore(t)

	mustExec(t, s, Command{Command: "create", Path: "/memories/a.md", FileText: "a"})
	mustExec(t, s, Command{Command: "create", Path: "/memories/sub/b.md", FileText: "b"})

	out, err := s.Execute(Command{Command: "view", Path: "/memories"})
	if err != nil {
		t.Fatalf("view error = %v", err)
	}
	if !strings.Contains(out, "a.md") || !strings.Contains(out, "sub/") {
		t.Errorf("directory listing incomplete:\n%s", out)
	}
}

func TestStore_ViewRange(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, Command{Command: "create", Path: "/memories/n.md", FileText: "one\ntwo\nthree\nfour"})

	out, err := s.Execute(Command{Command: "view", Path: "/memories/n.md", ViewRange: []int{2, 3}})
	if err != nil {
		t.Fatalf("view error = %v", err)
	}
	if strings.Contains(out, "1: one") || !strings.Contains(out, "2: two") || !strings.Contains(out, "3: three") || strings.Contains(out, "4: four") {
		t.Errorf("view range not honored:\n%s", out)
	}
}

func TestStore_StrReplace(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, Command{Command: "create", Path: "/memories/n.md", FileText: "hello world"})

	mustExec(t, s, Command{Command: "str_replace", Path: "/memories/n.md", OldStr: "world", NewStr: "there"})

	out := mustExec(t, s, Command{Command: "view", Path: "/memories/n.md"})
	if !strings.Contains(out, "hello there") {
		t.Errorf("replacement not applied:\n%s", out)
	}
}

func TestStore_StrReplace_RequiresUniqueMatch(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, Command{Command: "create", Path: "/memories/n.md", FileText: "dup dup"})

	if _, err := s.Execute(Command{Command: "str_replace", Path: "/memories/n.md", OldStr: "dup", NewStr: "x"}); err == nil {
		t.Error("expected error for ambiguous match")
	}
	if _, err := s.Execute(Command{Command: "str_replace", Path: "/memories/n.md", OldStr: "missing", NewStr: "x"}); err == nil {
		t.Error("expected error for missing match")
	}
}

func TestStore_Insert(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, Command{Command: "create", Path: "/memories/n.md", FileText: "one\nthree"})

	mustExec(t, s, Command{Command: "insert", Path: "/memories/n.md", InsertLine: 1, InsertText: "two"})

	out := mustExec(t, s, Command{Command: "view", Path: "/memories/n.md"})
	if !strings.Contains(out, "1: one\n2: two\n3: three") {
		t.Errorf("insert misplaced:\n%s", out)
	}
}

func TestStore_DeleteAndRename(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, Command{Command: "create", Path: "/memories/old.md", FileText: "x"})

	mustExec(t, s, Command{Command: "rename", OldPath: "/memories/old.md", NewPath: "/memories/new.md"})
	if _, err := s.Execute(Command{Command: "view", Path: "/memories/old.md"}); err == nil {
		t.Error("old path should be gone after rename")
	}

	mustExec(t, s, Command{Command: "delete", Path: "/memories/new.md"})
	if _, err := s.Execute(Command{Command: "view", Path: "/memories/new.md"}); err == nil {
		t.Error("file should be gone after delete")
	}
}

func TestStore_RejectsEscapingPaths(t *testing.T) {
	s := newTestStore(t)

	badPaths := []string{
		"/etc/passwd",
		"memories/n.md",
		"/memories/../etc/passwd",
		"/memories/sub/../../escape",
		"/memoriesx/n.md",
		"",
	}

	for _, p := range badPaths {
		t.Run(p, func(t *testing.T) {
			if _, err := s.Execute(Command{Command: "view", Path: p}); err == nil {
				t.Errorf("path %q should be rejected", p)
			}
			if _, err := s.Execute(Command{Command: "create", Path: p, FileText: "x"}); err == nil {
				t.Errorf("create at %q should be rejected", p)
			}
		})
	}
}

func TestStore_DeleteRootRejected(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Execute(Command{Command: "delete", Path: "/memories"}); err == nil {
		t.Error("deleting the memory root should be rejected")
	}
}

func TestStore_UnknownCommand(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Execute(Command{Command: "truncate", Path: "/memories/n.md"}); err == nil {
		t.Error("unknown command should error")
	}
}

func mustExec(t *testing.T, s *Store, cmd Command) string {
	t.Helper()
	out, err := s.Execute(cmd)
	if err != nil {
		t.Fatalf("%s error = %v", cmd.Command, err)
	}
	return out
}
