// Package bridge is the seam between toolview and whatever surrounds it:
// an editor, an IDE plugin, or nothing at all. The UI calls these hooks
// fire-and-forget; failures are logged, never surfaced as user errors.
package bridge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"toolview/internal/logging"
)

// OpenOptions targets a location inside a file.
type OpenOptions struct {
	Line    int
	EndLine int
}

// Edit is one replacement inside a file, for hosts that render diffs
// natively.
type Edit struct {
	OldString  string
	NewString  string
	ReplaceAll bool
}

// Bridge is the host surface toolview renders into when asked to leave
// the terminal. Implementations must be safe for concurrent use.
type Bridge interface {
	OpenFile(path string, opts OpenOptions)
	ShowDiff(path, oldContent, newContent string, edits []Edit)
	ShowMarkdown(content, title string)
}

// Discard ignores every request. It is the default when no host is wired.
type Discard struct{}

func (Discard) OpenFile(string, OpenOptions)         {}
func (Discard) ShowDiff(string, string, string, []Edit) {}
func (Discard) ShowMarkdown(string, string)          {}

// Desktop shells out to the platform opener ($EDITOR first for files).
// Every call returns immediately; the command runs detached.
type Desktop struct{}

func (Desktop) OpenFile(path string, opts OpenOptions) {
	if editor := os.Getenv("EDITOR"); editor != "" {
		arg := path
		if opts.Line > 0 {
			// The +line convention covers vi, nano, micro and friends.
			arg = fmt.Sprintf("+%d", opts.Line)
			launch(editor, arg, path)
			return
		}
		launch(editor, arg)
		return
	}
	launch(openerCommand(), path)
}

func (Desktop) ShowDiff(path, oldContent, newContent string, _ []Edit) {
	// Without a richer host the best we can do is drop both versions in
	// a temp dir and hand them to git's no-index differ.
	dir, err := os.MkdirTemp("", "toolview-diff-*")
	if err != nil {
		logging.Warn("show diff failed", "path", path, "error", err)
		return
	}
	base := filepath.Base(path)
	oldPath := filepath.Join(dir, "old-"+base)
	newPath := filepath.Join(dir, "new-"+base)
	if err := os.WriteFile(oldPath, []byte(oldContent), 0o600); err != nil {
		logging.Warn("show diff failed", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(newPath, []byte(newContent), 0o600); err != nil {
		logging.Warn("show diff failed", "path", path, "error", err)
		return
	}
	launch("git", "diff", "--no-index", oldPath, newPath)
}

func (Desktop) ShowMarkdown(content, title string) {
	name := "toolview-*.md"
	if title != "" {
		name = "toolview-" + filepath.Base(title) + "-*.md"
	}
	file, err := os.CreateTemp("", name)
	if err != nil {
		logging.Warn("show markdown failed", "title", title, "error", err)
		return
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		logging.Warn("show markdown failed", "title", title, "error", err)
		return
	}
	file.Close()
	launch(openerCommand(), file.Name())
}

func openerCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}

func launch(name string, args ...string) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		logging.Warn("bridge launch failed", "command", name, "error", err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logging.Warn("bridge command failed", "command", name, "error", err)
		}
	}()
}
