package plugins

import (
	"strings"
	"testing"
)

func validDefinition() ExtensionDefinition {
	return ExtensionDefinition{
		ID:      "todos",
		Version: "1.0.0",
		Run:     RunDefinition{Program: "bd", Args: []string{"ready"}},
	}
}

func TestNormalizedAppliesDefaults(t *testing.T) {
	def := validDefinition()
	def.ID = "  todos "
	def.Command.Name = "/ready"
	def.Description = "List ready work"

	got := def.Normalized()
	if got.ID != "todos" || got.Name != "todos" {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if got.Command.Name != "ready" || got.Command.Description != "List ready work" {
		t.Fatalf("unexpected command: %+v", got.Command)
	}
	if got.Message.CustomType != "todos" || got.Message.Template != DefaultTemplate {
		t.Fatalf("unexpected message defaults: %+v", got.Message)
	}
	if got.EmptyNotice != "ready returned nothing" {
		t.Fatalf("unexpected empty notice %q", got.EmptyNotice)
	}
}

func TestNormalizedCommandDefaultsToID(t *testing.T) {
	if got := validDefinition().Normalized().Command.Name; got != "todos" {
		t.Fatalf("expected command to default to id, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ExtensionDefinition)
		want   string
	}{
		{"missing id", func(d *ExtensionDefinition) { d.ID = " " }, "id is required"},
		{"missing version", func(d *ExtensionDefinition) { d.Version = "" }, "version is required"},
		{"missing program", func(d *ExtensionDefinition) { d.Run.Program = "" }, "run.program is required"},
		{"spaced command", func(d *ExtensionDefinition) { d.Command.Name = "two words" }, "contains whitespace"},
		{"bad delivery", func(d *ExtensionDefinition) { d.Message.DeliverAs = "later" }, "deliver_as"},
		{"bad template", func(d *ExtensionDefinition) { d.Message.Template = "{{.Stdout" }, "message.template"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			tc.mutate(&def)
			err := def.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if err := validDefinition().Validate(); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}
}
