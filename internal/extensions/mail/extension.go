// Package mail provides /mail, which shows the tracker inbox in the
// conversation.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
)

const (
	extensionID      = "mail"
	extensionVersion = "1.0.0"

	CustomType  = "mail"
	NoticeEmpty = "No new mail"
)

// Extension registers /mail.
type Extension struct {
	extension.Base
	tracker string
	exec    procexec.Runner
}

// Register installs the mail extension factory.
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
			Name:        "Mail",
			Description: "Show the tracker inbox.",
			Version:     extensionVersion,
		}),
		tracker: deps.Config.Tracker(),
		exec:    deps.Exec,
	}, nil
}

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	return api.RegisterCommand(extension.Command{
		Name:        "mail",
		Description: "Show unread tracker mail",
		Handler:     e.run,
	})
}

func (e *Extension) run(ctx context.Context, inv extension.Invocation) error {
	res, err := runtime.RunTool(ctx, e.exec, e.tracker, "mail", "inbox")
	if err != nil {
		inv.Host.Notify(fmt.Sprintf("Mail check failed: %v", err), host.LevelError)
		return nil
	}
	inbox := strings.TrimSpace(res.Stdout)
	if inbox == "" {
		inv.Host.Notify(NoticeEmpty, host.LevelInfo)
		return nil
	}
	msg := host.Message{CustomType: CustomType, Content: "Inbox:\n\n" + inbox, Display: true}
	if err := inv.Host.SendMessage(ctx, msg, host.Delivery{}); err != nil {
		return fmt.Errorf("mail: send message: %w", err)
	}
	return nil
}
