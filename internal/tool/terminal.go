// ABOUTME: run_in_terminal tool: executes a shell command in the workspace root
// ABOUTME: Output is returned to the backend; a failing command is a tool error, not a crash

package tool

import (
	"context"
	"os/exec"
	"strings"

	"github.com/2389/parley/internal/chat"
)

// RunInTerminal executes a backend-requested shell command.
type RunInTerminal struct{}

func (RunInTerminal) Name() string { return NameRunInTerminal }

func (RunInTerminal) Invoke(ctx context.Context, params chat.ToolInvokeParams, cp ContextProvider) (InvokeResult, error) {
	command, err := stringInput(params.Input, "command")
	if err != nil {
		return InvokeResult{}, err
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = cp.WorkspaceRoot()
	output, err := cmd.CombinedOutput()

	cp.UpdateChatHistory(params.TurnID, completedRound(params), nil)

	text := strings.TrimRight(string(output), "\n")
	if err != nil {
		// The command ran and failed; report its output with the error.
		return InvokeResult{Status: StatusError, Content: text + "\n" + err.Error()}, nil
	}
	return InvokeResult{Status: StatusSuccess, Content: text}, nil
}
