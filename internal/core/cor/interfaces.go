// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) is the workflow micro-framework the
// extraction pipelines are assembled from. A workflow is a Chain of Commands
// sharing one Context; each command reads its input from the context, does
// one unit of work (stage a source, capture frames, upload chunks), and
// writes its output back for the next command.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys the chain uses to pipe data between
// commands: after each command runs, the value under CtxOut becomes the
// value under CtxIn for the next command.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state bag for one workflow execution. It carries
// data between commands, collects per-command errors, and tracks temporary
// files so the workflow can clean up after itself.
type Context interface {
	// SetContext and GetContext manage the standard Go context, which
	// carries cancellation and the active trace span.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value under a key. Returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key.
	Remove(key string)

	// AddError records a command failure, keyed by the command name.
	AddError(key string, err error)

	// GetErrors returns every error recorded so far.
	GetErrors() map[string]error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile registers a file for removal when the context closes.
	AddTempFile(file string)

	// GetTempFiles returns the registered temp file paths.
	GetTempFiles() []string

	// Close removes every registered temp file. Defer it at the start of a
	// workflow so staged media never outlives the job.
	Close()
}

// Executable is anything with a core unit of work.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, individually traceable workflow step.
type Command interface {
	Executable

	// GetName identifies the command in logs, traces and metrics.
	GetName() string

	// GetInputParam and GetOutputParam name the context keys this command
	// reads from and writes to.
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest.
type Chain interface {
	Command

	// ContinueOnFailure selects whether the chain keeps running commands
	// after one of them records an error. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
