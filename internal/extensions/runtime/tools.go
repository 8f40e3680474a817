// Package runtime holds helpers shared by the built-in extensions.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/procexec"
)

// ToolError reports an external CLI that failed to launch or exited unsuccessfully.
type ToolError struct {
	Program string
	Args    []string
	Result  procexec.Result
	Launch  *procexec.LaunchError
}

func (e *ToolError) Error() string {
	cmdline := strings.TrimSpace(e.Program + " " + strings.Join(e.Args, " "))
	if e.Launch != nil {
		if e.Launch.NotFound() {
			return fmt.Sprintf("%s: command not found", e.Program)
		}
		return fmt.Sprintf("%s: %v", cmdline, e.Launch.Err)
	}
	return fmt.Sprintf("%s: %s", cmdline, e.Result.Failure())
}

func (e *ToolError) Unwrap() error {
	if e.Launch != nil {
		return e.Launch
	}
	return nil
}

// RunTool invokes program and returns its result. Launch failures and
// unsuccessful exits come back as *ToolError alongside whatever result exists.
func RunTool(ctx context.Context, runner procexec.Runner, program string, args ...string) (procexec.Result, error) {
	if runner == nil {
		runner = &procexec.ExecRunner{}
	}
	res, err := runner.Run(ctx, program, args...)
	if err != nil {
		var launch *procexec.LaunchError
		if errors.As(err, &launch) {
			return res, &ToolError{Program: program, Args: args, Launch: launch}
		}
		return res, fmt.Errorf("%s: %w", program, err)
	}
	if !res.Success() {
		return res, &ToolError{Program: program, Args: args, Result: res}
	}
	return res, nil
}

// ValidateDeps ensures extensions receive a usable dependency set.
func ValidateDeps(extensionID string, deps extension.Deps) error {
	if deps.Config == nil {
		return fmt.Errorf("%s: config is required", extensionID)
	}
	return nil
}
