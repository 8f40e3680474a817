// Package prime injects the tracker's priming context on the first prompt of
// each session.
package prime

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
)

const (
	extensionID      = "prime"
	extensionVersion = "1.0.0"

	// CustomType tags injected priming messages.
	CustomType = "prime"
)

// Extension runs `<tracker> prime` once per session. A marker file under
// .agentx/sessions records the first prompt so separate hook processes
// agree on it.
type Extension struct {
	extension.Base
	tracker   string
	markerDir string
	exec      procexec.Runner
	logger    *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// Register installs the prime extension factory.
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
			Name:        "Prime",
			Description: "Inject tracker context before the first agent turn of a session.",
			Version:     extensionVersion,
		}),
		tracker:   deps.Config.Tracker(),
		markerDir: deps.Config.SessionsDir(),
		exec:      deps.Exec,
		logger:    deps.Log(),
		seen:      map[string]struct{}{},
	}, nil
}

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	api.OnBeforeAgentStart(e.beforeAgentStart)
	return nil
}

func (e *Extension) beforeAgentStart(ctx context.Context, evt extension.BeforeAgentStartEvent) (*host.Message, error) {
	if !e.firstPrompt(evt.SessionID) {
		return nil, nil
	}
	res, err := runtime.RunTool(ctx, e.exec, e.tracker, "prime")
	if err != nil {
		e.logger.Info("prime skipped", zap.String("session_id", evt.SessionID), zap.Error(err))
		return nil, nil
	}
	content := strings.TrimSpace(res.Stdout)
	if content == "" {
		return nil, nil
	}
	return &host.Message{CustomType: CustomType, Content: content, Display: false}, nil
}

func (e *Extension) firstPrompt(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.seen[sessionID]; ok {
		return false
	}
	e.seen[sessionID] = struct{}{}
	first, err := claimMarker(e.markerDir, sessionID)
	if err != nil {
		e.logger.Warn("prime marker unavailable", zap.String("session_id", sessionID), zap.Error(err))
		return true
	}
	return first
}

// claimMarker creates the session's marker file and reports whether this
// call created it.
func claimMarker(dir, sessionID string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	path := filepath.Join(dir, markerName(sessionID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = f.Close()
	return true, nil
}

func markerName(sessionID string) string {
	return "prime-" + url.PathEscape(sessionID)
}
