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

package cloud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractionSeekTimeoutKeepsFraction(t *testing.T) {
	assert.Equal(t, 2500*time.Millisecond, Extraction{SeekTimeoutSeconds: 2.5}.SeekTimeout())
	assert.Equal(t, 5*time.Second, Extraction{SeekTimeoutSeconds: 5}.SeekTimeout())
	assert.Equal(t, time.Duration(0), Extraction{}.SeekTimeout())
}
