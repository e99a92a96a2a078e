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

package cor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendCommand appends its marker to the string piped through the chain.
type appendCommand struct {
	BaseCommand
	marker string
	fail   bool
}

func newAppendCommand(marker string, fail bool) *appendCommand {
	return &appendCommand{BaseCommand: *NewBaseCommand("append_" + marker), marker: marker, fail: fail}
}

func (c *appendCommand) Execute(ctx Context) {
	if c.fail {
		ctx.AddError(c.GetName(), errors.New("boom"))
		return
	}
	in, _ := ctx.Get(c.GetInputParam()).(string)
	ctx.Add(c.GetOutputParam(), in+c.marker)
}

func newTestContext() Context {
	ctx := NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(CtxIn, "")
	return ctx
}

func TestChainPipesOutputToInput(t *testing.T) {
	chain := NewBaseChain("pipe")
	chain.AddCommand(newAppendCommand("a", false))
	chain.AddCommand(newAppendCommand("b", false))
	chain.AddCommand(newAppendCommand("c", false))

	ctx := newTestContext()
	chain.Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, "abc", ctx.Get(CtxIn))
}

func TestChainStopsOnFirstError(t *testing.T) {
	chain := NewBaseChain("stop")
	chain.AddCommand(newAppendCommand("a", false))
	chain.AddCommand(newAppendCommand("b", true))
	chain.AddCommand(newAppendCommand("c", false))

	ctx := newTestContext()
	chain.Execute(ctx)

	require.True(t, ctx.HasErrors())
	// The third command never ran, so the piped value still holds only "a".
	assert.Equal(t, "a", ctx.Get(CtxIn))
}

func TestChainContinueOnFailure(t *testing.T) {
	chain := NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newAppendCommand("a", false))
	chain.AddCommand(newAppendCommand("b", true))
	chain.AddCommand(newAppendCommand("c", false))

	ctx := newTestContext()
	chain.Execute(ctx)

	require.True(t, ctx.HasErrors())
	assert.Equal(t, "ac", ctx.Get(CtxIn))
}

func TestChainStopsWhenCancelled(t *testing.T) {
	goCtx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewBaseChain("cancelled")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newAppendCommand("a", false))

	ctx := NewBaseContext()
	ctx.SetContext(goCtx)
	ctx.Add(CtxIn, "")
	chain.Execute(ctx)

	require.True(t, ctx.HasErrors())
	assert.ErrorIs(t, ctx.GetErrors()[ChainCancelledKey], context.Canceled)
	assert.Equal(t, "", ctx.Get(CtxIn))
}
