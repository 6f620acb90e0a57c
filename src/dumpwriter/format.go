/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package dumpwriter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var sizeSuffixes = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// PrettySize formats a size in bytes with a binary unit and up to two
// decimals, e.g. "2.0 KiB", "1.46 KiB". Sizes <= 0 are returned as "<n>B".
func PrettySize(size int64) string {
	if size <= 0 {
		return fmt.Sprintf("%dB", size)
	}
	i := 0
	unit := int64(1)
	for i < len(sizeSuffixes)-1 && size/unit >= 1024 {
		unit *= 1024
		i++
	}
	scaled := math.Round(float64(size)/float64(unit)*100) / 100
	return formatDecimal(scaled) + " " + sizeSuffixes[i]
}

// formatDecimal writes the shortest representation of f, always with a
// fractional part.
func formatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// PrettyDuration formats an interval as days, hours, minutes and seconds,
// omitting the leading zero units, e.g. "1m 30s", "2d 0h 0m 5s". A zero
// interval gives "".
func PrettyDuration(d time.Duration) string {
	total := math.Abs(d.Seconds())
	rem, secs := math.Floor(total/60), math.Mod(total, 60)
	rem, mins := math.Floor(rem/60), math.Mod(rem, 60)
	days, hours := math.Floor(rem/24), math.Mod(rem, 24)

	parts := []struct {
		value float64
		unit  string
	}{{days, "d"}, {hours, "h"}, {mins, "m"}, {secs, "s"}}
	for len(parts) > 0 && parts[0].value == 0 {
		parts = parts[1:]
	}

	var sb strings.Builder
	if d < 0 {
		sb.WriteString("-")
	}
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%.0f%s", p.value, p.unit)
	}
	return sb.String()
}
