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
// extraction pipelines are assembled from. This file defines BaseChain, the
// default Chain implementation.
//
// Logic Flow:
//  1. Execute opens one span covering the whole chain, then walks the
//     command list in order under child spans.
//  2. Before each command the chain checks for a cancelled Go context and
//     for errors recorded by earlier commands. Either one stops the chain
//     (errors only stop it when continueOnFailure is false; a cancelled
//     job always stops).
//  3. After each command, the value the command left under CtxOut is moved
//     to CtxIn, so commands pipe into each other without knowing their
//     neighbors.
//  4. The chain span ends with an Ok or Error status reflecting the final
//     error state of the context.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// ChainCancelledKey is the error-map key under which a chain records that it
// stopped because the Go context was cancelled.
const ChainCancelledKey = "__CHAIN_CANCELLED__"

// BaseChain runs an ordered list of commands against a shared context.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain creates an empty chain with the given name.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure selects whether the chain keeps running after a command
// records an error. Pipelines where partial success is the steady state
// (chunk uploads) set this to true.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends a command to the execution sequence.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable requires only a live Go context; chains have no input key of
// their own.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

// Execute runs the chain's commands in order against the shared context.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()

	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		// A cancelled job stops regardless of continueOnFailure; there is
		// no point uploading chunks for a job nobody is waiting on.
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(ChainCancelledKey, err)
			chainSpan.SetStatus(codes.Error, "chain cancelled")
			return
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if chCtx.HasErrors() && !c.continueOnFailure {
			commandSpan.SetStatus(codes.Error, "previous error on chain; skipping execution")
			commandSpan.End()
			break
		}

		if command.IsExecutable(chCtx) {
			// Run the command under its own span, then restore the chain's
			// context so sibling commands trace as siblings.
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}

		if chCtx.HasErrors() {
			commandSpan.SetStatus(codes.Error, "error during or after command execution")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		// Pipe: the output of this command becomes the input of the next.
		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if !chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	} else {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	}
}
