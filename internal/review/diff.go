// ABOUTME: Git diff collection for code review: staged and unstaged change groups
// ABOUTME: Shells out to git; files outside the supported language set are skipped

package review

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/2389/parley/internal/chat"
)

// DiffGroup selects which working-tree changes a review covers.
type DiffGroup string

const (
	DiffGroupStaged   DiffGroup = "staged"
	DiffGroupUnstaged DiffGroup = "unstaged"
)

// supportedExtensions are the file types the reviewer can meaningfully
// comment on.
var supportedExtensions = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cs": true, ".go": true,
	".h": true, ".hpp": true, ".java": true, ".js": true, ".jsx": true,
	".kt": true, ".m": true, ".php": true, ".py": true, ".rb": true,
	".rs": true, ".scala": true, ".sh": true, ".swift": true, ".ts": true,
	".tsx": true,
}

// SupportedFile reports whether the reviewer handles this file type.
func SupportedFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// DiffCollector reads changes out of a git working tree.
type DiffCollector struct {
	gitPath string
}

func NewDiffCollector() *DiffCollector {
	return &DiffCollector{gitPath: "git"}
}

// ProjectRoot resolves dir to the enclosing git repository root. Empty result
// with nil error means dir is not inside a repository.
func (d *DiffCollector) ProjectRoot(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	out, err := d.git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// Changes lists the reviewable file changes in the given group. Unsupported
// file types are filtered out.
func (d *DiffCollector) Changes(ctx context.Context, root string, group DiffGroup) ([]chat.ReviewChange, error) {
	args := []string{"diff", "--name-only"}
	if group == DiffGroupStaged {
		args = append(args, "--cached")
	}
	out, err := d.git(ctx, root, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s changes: %w", group, err)
	}

	var changes []chat.ReviewChange
	for _, line := range strings.Split(out, "\n") {
		path := strings.TrimSpace(line)
		if path == "" || !SupportedFile(path) {
			continue
		}

		base, head, err := d.fileVersions(ctx, root, path, group)
		if err != nil {
			return nil, err
		}
		changes = append(changes, chat.ReviewChange{
			URI:         "file://" + filepath.Join(root, path),
			Path:        path,
			BaseContent: base,
			HeadContent: head,
		})
	}
	return changes, nil
}

// fileVersions returns the before and after content for one changed file.
// Staged changes compare HEAD to the index; unstaged compare the index to the
// working tree.
func (d *DiffCollector) fileVersions(ctx context.Context, root, path string, group DiffGroup) (base, head string, err error) {
	if group == DiffGroupStaged {
		base, _ = d.git(ctx, root, "show", "HEAD:"+path) // empty for a new file
		head, err = d.git(ctx, root, "show", ":"+path)
		if err != nil {
			return "", "", fmt.Errorf("reading staged %s: %w", path, err)
		}
		return base, head, nil
	}

	base, _ = d.git(ctx, root, "show", ":"+path)
	data, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return base, "", nil // deleted in the working tree
		}
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return base, string(data), nil
}

func (d *DiffCollector) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.gitPath, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
