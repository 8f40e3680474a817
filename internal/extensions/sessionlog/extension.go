// Package sessionlog records the end of a session with the tracker and the
// learn store.
package sessionlog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/besteffort"
	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/procexec"
)

const (
	extensionID      = "sessionlog"
	extensionVersion = "1.0.0"
)

// Extension runs the shutdown bookkeeping commands.
type Extension struct {
	extension.Base
	tracker string
	learn   string
	exec    procexec.Runner
	logger  *zap.Logger
}

// Register installs the sessionlog extension factory.
func Register(reg *extension.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(extensionID, func(deps extension.Deps) (extension.Extension, error) {
		return New(deps)
	})
}

// New builds the extension.
func New(deps extension.Deps) (*Extension, error) {
	if err := runtime.ValidateDeps(extensionID, deps); err != nil {
		return nil, err
	}
	return &Extension{
		Base: extension.NewBase(extension.Info{
			ID:          extensionID,
			Name:        "Session log",
			Description: "Record session end with the tracker and learn store.",
			Version:     extensionVersion,
		}),
		tracker: deps.Config.Tracker(),
		learn:   deps.Config.Learn(),
		exec:    deps.Exec,
		logger:  deps.Log(),
	}, nil
}

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	api.OnSessionShutdown(e.shutdown)
	return nil
}

// shutdown runs both recorders. One failing never stops the other; the
// joined error only reaches the log.
func (e *Extension) shutdown(ctx context.Context, evt extension.SessionShutdownEvent) error {
	sessionID := strings.TrimSpace(evt.SessionID)
	if sessionID == "" {
		return errors.New("sessionlog: session id is required")
	}
	outcomes := besteffort.Run(ctx, e.logger.With(zap.String("session_id", sessionID)),
		besteffort.Task{
			Name: "tracker session-end",
			Run: func(ctx context.Context) error {
				_, err := runtime.RunTool(ctx, e.exec, e.tracker, "log", "session-end", "--session", sessionID)
				return err
			},
		},
		besteffort.Task{
			Name: "learn record",
			Run: func(ctx context.Context) error {
				_, err := runtime.RunTool(ctx, e.exec, e.learn, "record", "--session", sessionID)
				return err
			},
		},
	)
	var errs []error
	for _, o := range outcomes.Failed() {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}
