// Package extensions wires the built-in extensions into a registry.
package extensions

import (
	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/edit"
	"github.com/kingrea/agentx/internal/extensions/learn"
	"github.com/kingrea/agentx/internal/extensions/mail"
	"github.com/kingrea/agentx/internal/extensions/prime"
	"github.com/kingrea/agentx/internal/extensions/respond"
	"github.com/kingrea/agentx/internal/extensions/sessionlog"
)

// RegisterBuiltins installs all of the built-in extension factories into the
// provided registry.
func RegisterBuiltins(reg *extension.Registry) {
	if reg == nil {
		return
	}
	respond.Register(reg)
	edit.Register(reg)
	prime.Register(reg)
	mail.Register(reg)
	learn.Register(reg)
	sessionlog.Register(reg)
}
