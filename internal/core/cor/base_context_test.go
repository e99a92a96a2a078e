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
	"os"
	"testing"

	"github.com/zeebo/assert"
)

func TestBaseContextDataMap(t *testing.T) {
	ctx := NewBaseContext()
	ctx.SetContext(context.Background())

	ctx.Add("key", "value")
	assert.Equal(t, "value", ctx.Get("key"))

	ctx.Remove("key")
	assert.Nil(t, ctx.Get("key"))
}

func TestBaseContextErrors(t *testing.T) {
	ctx := NewBaseContext()
	ctx.SetContext(context.Background())

	assert.False(t, ctx.HasErrors())
	ctx.AddError("step-one", errors.New("boom"))
	assert.True(t, ctx.HasErrors())
	assert.Error(t, ctx.GetErrors()["step-one"])
}

func TestBaseContextCloseRemovesTempFiles(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "ctx-")
	assert.NoError(t, err)
	assert.NoError(t, tmp.Close())

	ctx := NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.AddTempFile(tmp.Name())
	assert.Equal(t, 1, len(ctx.GetTempFiles()))

	ctx.Close()
	_, err = os.Stat(tmp.Name())
	assert.True(t, os.IsNotExist(err))
}
