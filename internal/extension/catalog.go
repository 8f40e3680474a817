package extension

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/besteffort"
	"github.com/kingrea/agentx/internal/host"
)

var (
	// ErrUnknownCommand is returned when no extension registered the command.
	ErrUnknownCommand = errors.New("extension: unknown command")
	// ErrUnknownShortcut is returned when no extension bound the key.
	ErrUnknownShortcut = errors.New("extension: unknown shortcut")
)

// Catalog collects what extensions register and dispatches to it.
type Catalog struct {
	logger *zap.Logger

	mu         sync.RWMutex
	current    string
	extensions []Info
	commands   map[string]Command
	shortcuts  map[string]Shortcut
	beforeHook []namedBefore
	shutdown   []namedShutdown
}

type namedBefore struct {
	extension string
	handler   BeforeAgentStartHandler
}

type namedShutdown struct {
	extension string
	handler   SessionShutdownHandler
}

// NewCatalog returns an empty catalog.
func NewCatalog(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		logger:    logger,
		commands:  map[string]Command{},
		shortcuts: map[string]Shortcut{},
	}
}

// Load resolves every extension in r and registers it.
func Load(r *Registry, deps Deps) (*Catalog, error) {
	c := NewCatalog(deps.Log())
	for _, id := range r.IDs() {
		ext, err := r.Resolve(id, deps)
		if err != nil {
			return nil, err
		}
		if err := c.Install(ext); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Install registers ext's handlers. A failure leaves earlier installs intact.
func (c *Catalog) Install(ext Extension) error {
	info := ext.Info()
	if err := info.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	for _, existing := range c.extensions {
		if existing.ID == info.ID {
			c.mu.Unlock()
			return fmt.Errorf("extension: %s installed twice", info.ID)
		}
	}
	c.current = info.ID
	c.mu.Unlock()

	err := ext.Register(c)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = ""
	if err != nil {
		return fmt.Errorf("extension: register %s: %w", info.ID, err)
	}
	c.extensions = append(c.extensions, info)
	return nil
}

// RegisterCommand implements API.
func (c *Catalog) RegisterCommand(cmd Command) error {
	name := strings.TrimPrefix(strings.TrimSpace(cmd.Name), "/")
	if name == "" {
		return fmt.Errorf("extension: command name is required")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("extension: command %s has no handler", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.commands[name]; ok {
		return fmt.Errorf("extension: command %s already registered by %s", name, existing.Extension)
	}
	cmd.Name = name
	cmd.Extension = c.current
	c.commands[name] = cmd
	return nil
}

// RegisterShortcut implements API.
func (c *Catalog) RegisterShortcut(sc Shortcut) error {
	k := strings.ToLower(strings.TrimSpace(sc.Key))
	if k == "" {
		return fmt.Errorf("extension: shortcut key is required")
	}
	if sc.Handler == nil {
		return fmt.Errorf("extension: shortcut %s has no handler", k)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.shortcuts[k]; ok {
		return fmt.Errorf("extension: shortcut %s already bound by %s", k, existing.Extension)
	}
	sc.Key = k
	sc.Extension = c.current
	c.shortcuts[k] = sc
	return nil
}

// OnBeforeAgentStart implements API.
func (c *Catalog) OnBeforeAgentStart(h BeforeAgentStartHandler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.beforeHook = append(c.beforeHook, namedBefore{extension: c.current, handler: h})
	c.mu.Unlock()
}

// OnSessionShutdown implements API.
func (c *Catalog) OnSessionShutdown(h SessionShutdownHandler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.shutdown = append(c.shutdown, namedShutdown{extension: c.current, handler: h})
	c.mu.Unlock()
}

// RunCommand dispatches name with the raw argument text.
func (c *Catalog) RunCommand(ctx context.Context, h host.Host, name, args string) error {
	c.mu.RLock()
	cmd, ok := c.commands[strings.TrimPrefix(name, "/")]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	c.logger.Debug("run command", zap.String("command", cmd.Name), zap.String("extension", cmd.Extension))
	return cmd.Handler(ctx, Invocation{Host: h, Args: args})
}

// RunShortcut dispatches the handler bound to key.
func (c *Catalog) RunShortcut(ctx context.Context, h host.Host, key string) error {
	c.mu.RLock()
	sc, ok := c.shortcuts[strings.ToLower(strings.TrimSpace(key))]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownShortcut, key)
	}
	c.logger.Debug("run shortcut", zap.String("key", sc.Key), zap.String("extension", sc.Extension))
	return sc.Handler(ctx, Invocation{Host: h})
}

// BeforeAgentStart runs every hook in registration order and collects the
// messages they return. Hook errors are logged and skipped.
func (c *Catalog) BeforeAgentStart(ctx context.Context, evt BeforeAgentStartEvent) []host.Message {
	c.mu.RLock()
	hooks := append([]namedBefore(nil), c.beforeHook...)
	c.mu.RUnlock()
	var out []host.Message
	for _, hook := range hooks {
		msg, err := hook.handler(ctx, evt)
		if err != nil {
			c.logger.Warn("before-agent-start hook failed",
				zap.String("extension", hook.extension),
				zap.String("session_id", evt.SessionID),
				zap.Error(err))
			continue
		}
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out
}

// SessionShutdown runs every shutdown hook concurrently as best-effort tasks.
func (c *Catalog) SessionShutdown(ctx context.Context, evt SessionShutdownEvent) besteffort.Outcomes {
	c.mu.RLock()
	hooks := append([]namedShutdown(nil), c.shutdown...)
	c.mu.RUnlock()
	tasks := make([]besteffort.Task, 0, len(hooks))
	for _, hook := range hooks {
		handler := hook.handler
		tasks = append(tasks, besteffort.Task{
			Name: hook.extension + ":session-shutdown",
			Run:  func(ctx context.Context) error { return handler(ctx, evt) },
		})
	}
	return besteffort.Run(ctx, c.logger.With(zap.String("session_id", evt.SessionID)), tasks...)
}

// Extensions lists installed extensions in install order.
func (c *Catalog) Extensions() []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Info(nil), c.extensions...)
}

// Commands lists registered commands sorted by name.
func (c *Catalog) Commands() []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shortcuts lists bound shortcuts sorted by key.
func (c *Catalog) Shortcuts() []Shortcut {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Shortcut, 0, len(c.shortcuts))
	for _, sc := range c.shortcuts {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
