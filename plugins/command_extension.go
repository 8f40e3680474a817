package plugins

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
)

// TemplateData is what message templates can reference.
type TemplateData struct {
	// Stdout is the program output with surrounding whitespace removed.
	Stdout string
	// Args is the raw argument text the command was invoked with.
	Args string
}

type commandExtension struct {
	extension.Base
	definition ExtensionDefinition
	tmpl       *template.Template
	delivery   host.Delivery
	exec       procexec.Runner
	logger     *zap.Logger
}

func newCommandExtension(def ExtensionDefinition, deps extension.Deps) (*commandExtension, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	normalized := def.Normalized()
	tmpl, err := normalized.template()
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", normalized.ID, err)
	}
	deliverAs, err := host.ParseDeliverMode(normalized.Message.DeliverAs)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", normalized.ID, err)
	}
	info := extension.Info{
		ID:          normalized.ID,
		Name:        normalized.Name,
		Description: normalized.Description,
		Version:     normalized.Version,
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return &commandExtension{
		Base:       extension.NewBase(info),
		definition: normalized,
		tmpl:       tmpl,
		delivery:   host.Delivery{TriggerTurn: normalized.Message.TriggerTurn, DeliverAs: deliverAs},
		exec:       deps.Exec,
		logger:     deps.Log(),
	}, nil
}

func (c *commandExtension) Register(api extension.API) error {
	return api.RegisterCommand(extension.Command{
		Name:        c.definition.Command.Name,
		Description: c.definition.Command.Description,
		Handler:     c.run,
	})
}

func (c *commandExtension) run(ctx context.Context, inv extension.Invocation) error {
	args := append([]string(nil), c.definition.Run.Args...)
	if c.definition.Run.PassArgs {
		args = append(args, strings.Fields(inv.Args)...)
	}
	res, err := runtime.RunTool(ctx, c.exec, c.definition.Run.Program, args...)
	if err != nil {
		c.logger.Debug("plugin command failed", zap.String("command", c.definition.Command.Name), zap.Error(err))
		inv.Host.Notify(err.Error(), host.LevelError)
		return nil
	}
	stdout := strings.TrimSpace(res.Stdout)
	if stdout == "" {
		inv.Host.Notify(c.definition.EmptyNotice, host.LevelInfo)
		return nil
	}
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, TemplateData{Stdout: stdout, Args: strings.TrimSpace(inv.Args)}); err != nil {
		inv.Host.Notify(fmt.Sprintf("%s: render message: %v", c.definition.ID, err), host.LevelError)
		return nil
	}
	msg := host.Message{CustomType: c.definition.Message.CustomType, Content: buf.String(), Display: true}
	if err := inv.Host.SendMessage(ctx, msg, c.delivery); err != nil {
		return fmt.Errorf("plugin %s: send message: %w", c.definition.ID, err)
	}
	return nil
}
