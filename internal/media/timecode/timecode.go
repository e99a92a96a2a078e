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

// Package timecode parses, formats, and validates the human-readable time
// codes (HH:MM:SS or MM:SS) used to address points on a media timeline. The
// canonical form of a timestamp is seconds as a float64; the string form is
// display sugar. Parsing is lenient about zero padding ("5:3" is five minutes
// and three seconds) but strict about structure: at most three colon-separated
// fields, all numeric, minutes and seconds below 60 when a higher field is
// present.
package timecode

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Stamp pairs the raw input string with its canonical position in seconds.
// Keeping the raw form around lets failure reports echo exactly what the
// caller submitted.
type Stamp struct {
	Raw     string
	Seconds float64
}

// Label returns the normalized HH:MM:SS form of the stamp.
func (s Stamp) Label() string { return FromSeconds(s.Seconds) }

// ToSeconds converts a time code string to seconds. Accepted shapes are
// "SS", "MM:SS", and "HH:MM:SS"; the seconds field may carry a fractional
// part ("00:01:02.5").
func ToSeconds(tc string) (float64, error) {
	fields := strings.Split(strings.TrimSpace(tc), ":")
	if len(fields) == 0 || len(fields) > 3 {
		return 0, fmt.Errorf("invalid time code %q", tc)
	}

	// The last field is seconds and may be fractional; the rest are integers.
	secs, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid seconds field in time code %q", tc)
	}
	if len(fields) > 1 && secs >= 60 {
		return 0, fmt.Errorf("seconds field out of range in time code %q", tc)
	}

	total := secs
	multiplier := 60.0
	for i := len(fields) - 2; i >= 0; i-- {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid field %q in time code %q", fields[i], tc)
		}
		// Minutes must stay below 60 when an hours field precedes them.
		if multiplier == 60.0 && len(fields) == 3 && v >= 60 {
			return 0, fmt.Errorf("minutes field out of range in time code %q", tc)
		}
		total += float64(v) * multiplier
		multiplier *= 60.0
	}
	return total, nil
}

// FromSeconds formats a position in seconds as zero-padded HH:MM:SS.
// Fractional seconds are truncated: the string form is a label, the float64
// remains the canonical value.
func FromSeconds(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	whole := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", whole/3600, (whole/60)%60, whole%60)
}

// Normalize parses a time code and re-renders it in canonical HH:MM:SS form,
// e.g. "5:3" becomes "00:05:03".
func Normalize(tc string) (string, error) {
	secs, err := ToSeconds(tc)
	if err != nil {
		return "", err
	}
	return FromSeconds(secs), nil
}

// ParseSet converts a batch of raw time codes into parsed stamps, partitioning
// out the malformed entries instead of failing the batch or silently dropping
// them. The valid stamps come back deduplicated and sorted ascending.
func ParseSet(raw []string) (valid []Stamp, invalid []string) {
	seen := make(map[float64]bool, len(raw))
	for _, tc := range raw {
		secs, err := ToSeconds(tc)
		if err != nil {
			invalid = append(invalid, tc)
			continue
		}
		if seen[secs] {
			continue
		}
		seen[secs] = true
		valid = append(valid, Stamp{Raw: tc, Seconds: secs})
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Seconds < valid[j].Seconds })
	return valid, invalid
}

// SplitByDuration partitions stamps into those addressable within the given
// media duration and those beyond it. Out-of-range stamps are returned, not
// dropped, so the caller can report them. A non-positive duration means the
// duration is unknown and nothing is filtered.
func SplitByDuration(stamps []Stamp, duration float64) (in, out []Stamp) {
	if duration <= 0 {
		return stamps, nil
	}
	for _, s := range stamps {
		if s.Seconds <= duration {
			in = append(in, s)
		} else {
			out = append(out, s)
		}
	}
	return in, out
}
