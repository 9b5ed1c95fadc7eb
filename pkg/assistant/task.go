package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/conversation"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/router"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tools"
)

// dispatch runs command on its own goroutine, or rejects it with MsgBusy
// when the concurrency bound is reached. It never blocks.
func (a *Assistant) dispatch(ctx context.Context, command string) {
	if a.sem != nil && !a.sem.TryAcquire(1) {
		a.logger.Warn("command rejected, too many in flight", "text", command, "max", a.opts.MaxConcurrent)
		a.say(a.logger, MsgBusy)
		return
	}

	id := uuid.NewString()
	logger := a.logger.With("task_id", id)
	logger.Debug("dispatched", "text", command)

	// Commands run to completion even if the listening loop is cancelled.
	taskCtx := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.sem != nil {
			defer a.sem.Release(1)
		}
		a.handle(taskCtx, id, logger, command)
	}()
}

// handle takes one command through classification to speech.
func (a *Assistant) handle(ctx context.Context, id string, logger *slog.Logger, command string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("command panicked", "panic", fmt.Sprint(r))
			a.say(logger, conversation.MsgError)
		}
		a.setState(id, logger, Idle)
	}()

	a.setState(id, logger, Classifying)
	class := a.deps.Classifier.Classify(ctx, command)
	logger.Info("classified", "class", class, "text", command)

	var result string
	switch class {
	case router.Tool:
		result = a.runTool(ctx, id, logger, command)
	case router.Complex:
		if !a.opts.SkipInterstitial {
			a.say(logger, MsgInterstitial)
		}
		a.setState(id, logger, Responding)
		result = a.deps.Conversation.Respond(ctx, command, a.opts.SmartModel)
	default:
		a.setState(id, logger, Responding)
		result = a.deps.Conversation.Respond(ctx, command, a.opts.FastModel)
	}

	a.setState(id, logger, Speaking)
	if strings.TrimSpace(result) == "" {
		logger.Warn("empty result dropped", "class", class)
		return
	}
	a.say(logger, result)
}

// runTool selects, resolves and executes a tool, returning text to speak.
func (a *Assistant) runTool(ctx context.Context, id string, logger *slog.Logger, command string) string {
	a.setState(id, logger, ToolSelecting)
	inv, ok := a.deps.Selector.Select(ctx, command)
	if !ok {
		logger.Info("no tool selected")
		return router.MsgNoTool
	}

	spec, ok := a.deps.Registry.Lookup(inv.Tool)
	if !ok {
		logger.Warn("selected tool not registered", "tool", inv.Tool)
		return tools.MsgUnknownTool
	}

	a.setState(id, logger, ArgResolving)
	args, err := a.deps.Resolver.Resolve(ctx, spec, inv.Arguments, command)
	if err != nil {
		logger.Warn("argument resolution failed", "tool", spec.Name, "error", err)
		return router.MsgBadArguments
	}
	inv = tools.Invocation{Tool: spec.Name, Arguments: args}

	a.setState(id, logger, Executing)
	text, err := a.deps.Executor.Execute(ctx, inv)
	if err != nil {
		logger.Warn("tool failed", "tool", spec.Name, "error", err)
	}
	return text
}

func (a *Assistant) setState(id string, logger *slog.Logger, s State) {
	logger.Debug("state", "state", s)
	if a.opts.OnState == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state hook panicked", "state", s, "panic", fmt.Sprint(r))
		}
	}()
	a.opts.OnState(id, s)
}
