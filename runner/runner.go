//
// Copyright (C) 2026 The reelforge Authors. All rights reserved.
//
// reelforge is licensed under the Apache License Version 2.0.
//
//

// Package runner drives a built pipeline graph to completion: it owns the
// interrupt/resume conversation with the operator, OS signal handling, and
// the post-cancellation cleanup of run resources.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/reelforge/reelforge/graph"
	"github.com/reelforge/reelforge/log"
	"github.com/reelforge/reelforge/pipeline"
	"github.com/reelforge/reelforge/session"
	"github.com/reelforge/reelforge/store"
)

// Prompter is the operator conversation surface. The runner uses it to
// relay interrupt questions and the delete-or-preserve cleanup decision.
type Prompter interface {
	// Prompt asks a question and returns the operator's answer.
	Prompt(ctx context.Context, question, hint string) (string, error)
	// Confirm asks a yes/no question. The default on empty input is no.
	Confirm(ctx context.Context, question string) (bool, error)
}

// IOPrompter reads answers line by line from an input stream. The zero
// value is unusable; construct with NewIOPrompter.
type IOPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewIOPrompter creates a prompter over the given streams. Pass os.Stdin
// and os.Stdout for terminal use.
func NewIOPrompter(in io.Reader, out io.Writer) *IOPrompter {
	return &IOPrompter{in: bufio.NewReader(in), out: out}
}

// Prompt implements Prompter.
func (p *IOPrompter) Prompt(ctx context.Context, question, hint string) (string, error) {
	fmt.Fprintln(p.out, question)
	if hint != "" {
		fmt.Fprintf(p.out, "  (%s)\n", hint)
	}
	fmt.Fprint(p.out, "> ")
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm implements Prompter.
func (p *IOPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Prompt(ctx, question+" [y/N]", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Runner executes one pipeline run end to end.
type Runner struct {
	graph    *graph.Graph
	saver    graph.CheckpointSaver
	manager  *graph.CheckpointManager
	tasks    store.TaskStore
	projects store.ProjectStore
	session  *session.Session
	prompter Prompter
	out      io.Writer
	maxSteps int

	// sigCh overrides signal delivery in tests; when nil the runner
	// subscribes to SIGINT/SIGTERM. exit is swapped in tests too;
	// production uses os.Exit.
	sigCh chan os.Signal
	exit  func(code int)
}

// Options configure a Runner.
type Options struct {
	Graph    *graph.Graph
	Saver    graph.CheckpointSaver
	Tasks    store.TaskStore
	Projects store.ProjectStore
	Session  *session.Session
	Prompter Prompter
	// Out receives the run summary; defaults to os.Stdout.
	Out io.Writer
	// MaxSteps bounds a single execution pass; zero keeps the engine default.
	MaxSteps int
}

// New creates a runner.
func New(opts Options) (*Runner, error) {
	switch {
	case opts.Graph == nil:
		return nil, errors.New("runner: graph is required")
	case opts.Saver == nil:
		return nil, errors.New("runner: checkpoint saver is required")
	case opts.Tasks == nil:
		return nil, errors.New("runner: task store is required")
	case opts.Projects == nil:
		return nil, errors.New("runner: project store is required")
	case opts.Session == nil:
		return nil, errors.New("runner: session is required")
	case opts.Prompter == nil:
		return nil, errors.New("runner: prompter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Runner{
		graph:    opts.Graph,
		saver:    opts.Saver,
		manager:  graph.NewCheckpointManager(opts.Saver),
		tasks:    opts.Tasks,
		projects: opts.Projects,
		session:  opts.Session,
		prompter: opts.Prompter,
		out:      out,
		maxSteps: opts.MaxSteps,
		exit:     os.Exit,
	}, nil
}

// Run executes the graph from the given initial state, resuming across
// interrupts until the run completes, fails, or is cancelled. On
// cancellation or failure the operator decides whether the run's resources
// are deleted or preserved for a later resume.
func (r *Runner) Run(ctx context.Context, initialState graph.State) (graph.State, error) {
	execOpts := []graph.ExecutorOption{graph.WithCheckpointSaver(r.saver)}
	if r.maxSteps > 0 {
		execOpts = append(execOpts, graph.WithMaxSteps(r.maxSteps))
	}
	executor, err := graph.NewExecutor(r.graph, execOpts...)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	r.watchSignals(cancel, done)

	lineageID := r.session.RunID()
	state := initialState
	for {
		final, execErr := executor.Execute(runCtx, state, lineageID)
		switch {
		case execErr == nil:
			r.finishRun(ctx, final)
			return final, nil

		case graph.IsInterruptError(execErr):
			ie, _ := graph.AsInterruptError(execErr)
			answer, perr := r.askInterrupt(ctx, ie)
			if perr != nil {
				return final, r.teardown(ctx, fmt.Errorf("interrupt not answered: %w", perr))
			}
			cmd := graph.NewResumeCommand().AddResumeValue(ie.Key, answer)
			state, err = r.manager.ResumeFromLatest(ctx, lineageID, graph.DefaultCheckpointNamespace, cmd)
			if err != nil {
				return final, r.teardown(ctx, fmt.Errorf("resume failed: %w", err))
			}

		case errors.Is(execErr, context.Canceled) && r.session.Interrupted():
			log.Warnf("run cancelled by operator")
			return final, r.teardown(ctx, execErr)

		default:
			log.Errorf("run failed: %v", execErr)
			return final, r.teardown(ctx, execErr)
		}
	}
}

// watchSignals cancels the run on the first SIGINT/SIGTERM and force-exits
// on a second signal received while teardown is still running.
func (r *Runner) watchSignals(cancel context.CancelFunc, done <-chan struct{}) {
	sigCh := r.sigCh
	subscribed := sigCh == nil
	if subscribed {
		sigCh = make(chan os.Signal, 2)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	go func() {
		if subscribed {
			defer signal.Stop(sigCh)
		}
		select {
		case <-done:
			return
		case sig := <-sigCh:
			log.Warnf("received %s; finishing current phase before stopping", sig)
			r.session.MarkInterrupted()
			cancel()
		}
		select {
		case <-done:
		case sig := <-sigCh:
			log.Errorf("received second %s; exiting immediately", sig)
			r.exit(130)
		}
	}()
}

// askInterrupt relays a node's interrupt payload to the operator.
func (r *Runner) askInterrupt(ctx context.Context, ie *graph.InterruptError) (string, error) {
	question, hint := interruptPrompt(ie.Value)
	return r.prompter.Prompt(ctx, question, hint)
}

// interruptPrompt extracts question and hint from an interrupt payload,
// tolerating the map shape payloads take after a checkpoint round-trip.
func interruptPrompt(value any) (question, hint string) {
	switch v := value.(type) {
	case pipeline.InterruptRequest:
		return v.Question, v.Hint
	case map[string]any:
		question, _ = v["question"].(string)
		hint, _ = v["hint"].(string)
		if question != "" {
			return question, hint
		}
	}
	return fmt.Sprint(value), ""
}

// finishRun marks the project completed after a successful run.
func (r *Runner) finishRun(ctx context.Context, final graph.State) {
	summary := r.session.Summary()
	fmt.Fprintln(r.out, summary.String())
	if summary.ProjectID != "" {
		if err := r.projects.UpdateStatus(ctx, summary.ProjectID, store.ProjectStatusCompleted); err != nil {
			log.Warnf("failed to mark project %s completed: %v", summary.ProjectID, err)
		}
	}
}

// teardown runs the cancellation/failure exit path: print the session
// summary, ask whether to delete the run's resources, and either clean
// them up or preserve them for a later resume. Cleanup is best effort;
// individual deletion failures are logged and do not stop the rest.
func (r *Runner) teardown(ctx context.Context, cause error) error {
	summary := r.session.Summary()
	fmt.Fprintln(r.out, summary.String())

	deleteResources, err := r.prompter.Confirm(ctx,
		"Delete the tasks, project, and checkpoints created by this run?")
	if err != nil {
		log.Warnf("cleanup decision unavailable, preserving resources: %v", err)
		deleteResources = false
	}

	if !deleteResources {
		if summary.ProjectID != "" {
			if uerr := r.projects.UpdateStatus(ctx, summary.ProjectID, store.ProjectStatusCancelled); uerr != nil {
				log.Warnf("failed to mark project %s cancelled: %v", summary.ProjectID, uerr)
			}
		}
		log.Infof("resources preserved; resume with project %s", summary.ProjectID)
		return cause
	}

	for _, taskID := range summary.TaskIDs {
		if derr := r.tasks.Delete(ctx, taskID); derr != nil {
			log.Warnf("failed to delete task %s: %v", taskID, derr)
		}
	}
	if summary.ProjectID != "" {
		if derr := r.projects.Delete(ctx, summary.ProjectID); derr != nil {
			log.Warnf("failed to delete project %s: %v", summary.ProjectID, derr)
		}
	}
	if derr := r.manager.DeleteLineage(ctx, summary.RunID); derr != nil {
		log.Warnf("failed to delete checkpoints for %s: %v", summary.RunID, derr)
	}
	log.Infof("run resources deleted")
	return cause
}
