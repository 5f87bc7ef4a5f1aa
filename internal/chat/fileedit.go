// ABOUTME: FileEdit tracks file modifications performed by client tools
// ABOUTME: Used as a checkpoint so edits can be kept or undone per turn

package chat

// FileEditStatus is the user's decision on a tracked edit.
type FileEditStatus string

const (
	FileEditStatusNone   FileEditStatus = "none"
	FileEditStatusKept   FileEditStatus = "kept"
	FileEditStatusUndone FileEditStatus = "undone"
)

// FileEdit records one file modification made by a tool during a turn.
// ToolName determines the undo logic: an edit is reverted by restoring the
// original content, a created file by removing it.
type FileEdit struct {
	FilePath        string         `json:"filePath"`
	OriginalContent string         `json:"originalContent"`
	ModifiedContent string         `json:"modifiedContent"`
	Status          FileEditStatus `json:"status"`
	ToolName        string         `json:"toolName"`
}
