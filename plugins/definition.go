package plugins

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kingrea/agentx/internal/host"
)

// DefaultTemplate renders the tool output unchanged.
const DefaultTemplate = "{{.Stdout}}"

// ExtensionDefinition describes a command extension loaded from YAML or Go.
//
// The struct mirrors the on-disk schema under .agentx/extensions/*.yaml and is
// narrow so definitions can be validated before they reach the catalog.
type ExtensionDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string            `json:"version" yaml:"version"`
	Command     CommandDefinition `json:"command" yaml:"command"`
	Run         RunDefinition     `json:"run" yaml:"run"`
	Message     MessageDefinition `json:"message,omitempty" yaml:"message,omitempty"`
	EmptyNotice string            `json:"empty_notice,omitempty" yaml:"empty_notice,omitempty"`
}

// CommandDefinition names the slash command the extension registers.
type CommandDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RunDefinition is the external program behind the command.
type RunDefinition struct {
	Program string   `json:"program" yaml:"program"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	// PassArgs appends the user's whitespace-separated arguments.
	PassArgs bool `json:"pass_args,omitempty" yaml:"pass_args,omitempty"`
}

// MessageDefinition shapes the chat message built from the program output.
type MessageDefinition struct {
	CustomType  string `json:"custom_type,omitempty" yaml:"custom_type,omitempty"`
	Template    string `json:"template,omitempty" yaml:"template,omitempty"`
	TriggerTurn bool   `json:"trigger_turn,omitempty" yaml:"trigger_turn,omitempty"`
	DeliverAs   string `json:"deliver_as,omitempty" yaml:"deliver_as,omitempty"`
}

// Normalized returns a trimmed copy with defaults applied.
func (def ExtensionDefinition) Normalized() ExtensionDefinition {
	clone := ExtensionDefinition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Version:     strings.TrimSpace(def.Version),
		Command: CommandDefinition{
			Name:        strings.TrimPrefix(strings.TrimSpace(def.Command.Name), "/"),
			Description: strings.TrimSpace(def.Command.Description),
		},
		Run: RunDefinition{
			Program:  strings.TrimSpace(def.Run.Program),
			PassArgs: def.Run.PassArgs,
		},
		Message: MessageDefinition{
			CustomType:  strings.TrimSpace(def.Message.CustomType),
			Template:    def.Message.Template,
			TriggerTurn: def.Message.TriggerTurn,
			DeliverAs:   strings.TrimSpace(def.Message.DeliverAs),
		},
		EmptyNotice: strings.TrimSpace(def.EmptyNotice),
	}
	if len(def.Run.Args) > 0 {
		clone.Run.Args = append([]string(nil), def.Run.Args...)
	}
	if clone.Name == "" {
		clone.Name = clone.ID
	}
	if clone.Command.Name == "" {
		clone.Command.Name = clone.ID
	}
	if clone.Command.Description == "" {
		clone.Command.Description = clone.Description
	}
	if clone.Message.CustomType == "" {
		clone.Message.CustomType = clone.ID
	}
	if strings.TrimSpace(clone.Message.Template) == "" {
		clone.Message.Template = DefaultTemplate
	}
	if clone.EmptyNotice == "" {
		clone.EmptyNotice = fmt.Sprintf("%s returned nothing", clone.Command.Name)
	}
	return clone
}

// Validate ensures the definition can be turned into a working command.
func (def ExtensionDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if normalized.Version == "" {
		return fmt.Errorf("plugin %s: version is required", normalized.ID)
	}
	if strings.ContainsAny(normalized.Command.Name, " \t\n") {
		return fmt.Errorf("plugin %s: command name %q contains whitespace", normalized.ID, normalized.Command.Name)
	}
	if normalized.Run.Program == "" {
		return fmt.Errorf("plugin %s: run.program is required", normalized.ID)
	}
	if _, err := host.ParseDeliverMode(normalized.Message.DeliverAs); err != nil {
		return fmt.Errorf("plugin %s: message.deliver_as: %w", normalized.ID, err)
	}
	if _, err := normalized.template(); err != nil {
		return fmt.Errorf("plugin %s: message.template: %w", normalized.ID, err)
	}
	return nil
}

func (def ExtensionDefinition) template() (*template.Template, error) {
	return template.New(def.ID).Option("missingkey=error").Parse(def.Message.Template)
}
