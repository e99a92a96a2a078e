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

package timecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSeconds(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "00:00:00", want: 0},
		{in: "00:01:30", want: 90},
		{in: "01:00:00", want: 3600},
		{in: "5:3", want: 303},
		{in: "42", want: 42},
		{in: "00:01:02.5", want: 62.5},
		{in: " 00:02:00 ", want: 120},
		{in: "00:99:00", wantErr: true},
		{in: "00:00:75", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "-5", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ToSeconds(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestFromSeconds(t *testing.T) {
	assert.Equal(t, "00:00:00", FromSeconds(0))
	assert.Equal(t, "00:05:03", FromSeconds(303))
	assert.Equal(t, "01:01:01", FromSeconds(3661))
	assert.Equal(t, "00:00:12", FromSeconds(12.9)) // labels truncate
	assert.Equal(t, "00:00:00", FromSeconds(-3))
}

// Round trip: parsing a formatted value and formatting the parsed value must
// agree with the normalized form of the original.
func TestRoundTrip(t *testing.T) {
	for _, in := range []string{"00:00:01", "5:3", "59:59", "12:34:56", "90"} {
		norm, err := Normalize(in)
		require.NoError(t, err, in)

		secs, err := ToSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, norm, FromSeconds(secs), in)

		again, err := ToSeconds(norm)
		require.NoError(t, err, in)
		assert.InDelta(t, secs, again, 1e-9, in)
	}
}

func TestParseSet(t *testing.T) {
	valid, invalid := ParseSet([]string{"00:02:00", "bogus", "00:01:00", "02:00", "00:00:30", ""})

	assert.Equal(t, []string{"bogus", ""}, invalid)
	require.Len(t, valid, 3) // "00:02:00" and "02:00" collapse to one stamp
	assert.Equal(t, 30.0, valid[0].Seconds)
	assert.Equal(t, 60.0, valid[1].Seconds)
	assert.Equal(t, 120.0, valid[2].Seconds)
	assert.Equal(t, "00:02:00", valid[2].Label())
}

func TestSplitByDuration(t *testing.T) {
	stamps, _ := ParseSet([]string{"00:00:10", "00:01:00", "00:10:00"})

	in, out := SplitByDuration(stamps, 90)
	require.Len(t, in, 2)
	require.Len(t, out, 1)
	assert.Equal(t, 600.0, out[0].Seconds)

	// Unknown duration filters nothing.
	in, out = SplitByDuration(stamps, 0)
	assert.Len(t, in, 3)
	assert.Empty(t, out)
}
