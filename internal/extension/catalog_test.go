package extension

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kingrea/agentx/internal/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubExtension struct {
	Base
	register func(API) error
}

func (s stubExtension) Register(api API) error { return s.register(api) }

func stub(id string, register func(API) error) Factory {
	return func(Deps) (Extension, error) {
		return stubExtension{
			Base:     NewBase(Info{ID: id, Name: id, Version: "1.0.0"}),
			register: register,
		}, nil
	}
}

func noop(context.Context, Invocation) error { return nil }

func TestInfoValidate(t *testing.T) {
	assert.Error(t, Info{}.Validate())
	assert.Error(t, Info{ID: "x"}.Validate())
	assert.Error(t, Info{ID: "x", Name: "X"}.Validate())
	assert.NoError(t, Info{ID: "x", Name: "X", Version: "1"}.Validate())
}

func TestRegistryRejectsDuplicatesAndMismatchedIDs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", stub("a", func(API) error { return nil })))
	assert.Error(t, r.Register("a", stub("a", nil)))
	assert.Error(t, r.Register("", stub("", nil)))
	require.NoError(t, r.Register("b", stub("other", func(API) error { return nil })))

	_, err := r.Resolve("b", Deps{})
	assert.ErrorContains(t, err, "reports id other")
	_, err = r.Resolve("missing", Deps{})
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}

func TestLoadDispatchesCommandsAndShortcuts(t *testing.T) {
	var gotArgs string
	r := NewRegistry()
	r.MustRegister("alpha", stub("alpha", func(api API) error {
		if err := api.RegisterCommand(Command{Name: "/greet", Description: "say hi", Handler: func(ctx context.Context, inv Invocation) error {
			gotArgs = inv.Args
			return nil
		}}); err != nil {
			return err
		}
		return api.RegisterShortcut(Shortcut{Key: "Ctrl+Shift+G", Handler: noop})
	}))
	c, err := Load(r, Deps{})
	require.NoError(t, err)

	require.NoError(t, c.RunCommand(context.Background(), nil, "greet", "there --tui"))
	assert.Equal(t, "there --tui", gotArgs)
	require.NoError(t, c.RunShortcut(context.Background(), nil, "ctrl+shift+g"))

	assert.ErrorIs(t, c.RunCommand(context.Background(), nil, "nope", ""), ErrUnknownCommand)
	assert.ErrorIs(t, c.RunShortcut(context.Background(), nil, "ctrl+x"), ErrUnknownShortcut)

	cmds := c.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "greet", cmds[0].Name)
	assert.Equal(t, "alpha", cmds[0].Extension)
	assert.Equal(t, "ctrl+shift+g", c.Shortcuts()[0].Key)
	assert.Equal(t, "alpha", c.Extensions()[0].ID)
}

func TestDuplicateCommandIsRegistrationError(t *testing.T) {
	r := NewRegistry()
	register := func(api API) error { return api.RegisterCommand(Command{Name: "dup", Handler: noop}) }
	r.MustRegister("one", stub("one", register))
	r.MustRegister("two", stub("two", register))
	_, err := Load(r, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered by one")
}

func TestDuplicateShortcutIsRegistrationError(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.RegisterShortcut(Shortcut{Key: "ctrl+r", Handler: noop}))
	assert.Error(t, c.RegisterShortcut(Shortcut{Key: "CTRL+R", Handler: noop}))
	assert.Error(t, c.RegisterShortcut(Shortcut{Key: "ctrl+q"}))
}

func TestBeforeAgentStartSkipsFailingHooks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := NewCatalog(zap.New(core))
	c.OnBeforeAgentStart(func(context.Context, BeforeAgentStartEvent) (*host.Message, error) {
		return nil, errors.New("tracker offline")
	})
	c.OnBeforeAgentStart(func(ctx context.Context, evt BeforeAgentStartEvent) (*host.Message, error) {
		return &host.Message{CustomType: "prime", Content: "context for " + evt.SessionID}, nil
	})
	c.OnBeforeAgentStart(func(context.Context, BeforeAgentStartEvent) (*host.Message, error) {
		return nil, nil
	})

	msgs := c.BeforeAgentStart(context.Background(), BeforeAgentStartEvent{SessionID: "s1", Prompt: "go"})
	require.Len(t, msgs, 1)
	assert.Equal(t, "context for s1", msgs[0].Content)
	assert.Equal(t, 1, logs.FilterMessage("before-agent-start hook failed").Len())
}

func TestSessionShutdownRunsEveryHook(t *testing.T) {
	var ran atomic.Int32
	c := NewCatalog(nil)
	c.OnSessionShutdown(func(context.Context, SessionShutdownEvent) error {
		ran.Add(1)
		return errors.New("log failed")
	})
	c.OnSessionShutdown(func(context.Context, SessionShutdownEvent) error {
		ran.Add(1)
		return nil
	})
	outcomes := c.SessionShutdown(context.Background(), SessionShutdownEvent{SessionID: "s1"})
	assert.EqualValues(t, 2, ran.Load())
	assert.Len(t, outcomes, 2)
	assert.Len(t, outcomes.Failed(), 1)
}
