// ABOUTME: File editing tools: insert_edit_into_file and create_file
// ABOUTME: Both track a FileEdit checkpoint and push a completed round into history

package tool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/2389/parley/internal/chat"
)

// InsertEditIntoFile replaces a file's content with backend-supplied code.
type InsertEditIntoFile struct{}

func (InsertEditIntoFile) Name() string { return NameInsertEditIntoFile }

func (InsertEditIntoFile) Invoke(ctx context.Context, params chat.ToolInvokeParams, cp ContextProvider) (InvokeResult, error) {
	filePath, err := stringInput(params.Input, "filePath")
	if err != nil {
		return InvokeResult{}, err
	}
	code, err := stringInput(params.Input, "code")
	if err != nil {
		return InvokeResult{}, err
	}

	original, err := os.ReadFile(filePath)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("reading %s: %w", filePath, err)
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if err := os.WriteFile(filePath, []byte(code), info.Mode()); err != nil {
		return InvokeResult{}, fmt.Errorf("writing %s: %w", filePath, err)
	}

	edit := chat.FileEdit{
		FilePath:        filePath,
		OriginalContent: string(original),
		ModifiedContent: code,
		Status:          chat.FileEditStatusNone,
		ToolName:        NameInsertEditIntoFile,
	}
	cp.UpdateFileEdits(edit)
	cp.UpdateChatHistory(params.TurnID, completedRound(params), []chat.FileEdit{edit})

	if err := cp.NotifyChangeTextDocument(ctx, fileURI(filePath), code); err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{Status: StatusSuccess, Content: code}, nil
}

// CreateFile writes a new file that must not already exist.
type CreateFile struct{}

func (CreateFile) Name() string { return NameCreateFile }

func (CreateFile) Invoke(ctx context.Context, params chat.ToolInvokeParams, cp ContextProvider) (InvokeResult, error) {
	filePath, err := stringInput(params.Input, "filePath")
	if err != nil {
		return InvokeResult{}, err
	}
	content, err := stringInput(params.Input, "content")
	if err != nil {
		return InvokeResult{}, err
	}

	if _, err := os.Stat(filePath); err == nil {
		return InvokeResult{}, fmt.Errorf("file already exists: %s", filePath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return InvokeResult{}, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return InvokeResult{}, fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return InvokeResult{}, fmt.Errorf("writing %s: %w", filePath, err)
	}

	edit := chat.FileEdit{
		FilePath:        filePath,
		ModifiedContent: content,
		Status:          chat.FileEditStatusNone,
		ToolName:        NameCreateFile,
	}
	cp.UpdateFileEdits(edit)
	cp.UpdateChatHistory(params.TurnID, completedRound(params), []chat.FileEdit{edit})

	if err := cp.NotifyChangeTextDocument(ctx, fileURI(filePath), content); err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{Status: StatusSuccess, Content: "Created " + filePath}, nil
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs
}
