package util

import (
	"slices"
	"strconv"
	"strings"
)

// SetKey returns a canonical textual key for a set of native handles: sorted,
// deduplicated, lowercase hex, comma-joined. Equal sets yield equal keys
// regardless of input order or duplicates.
func SetKey(handles []uintptr) string {
	s := make([]uintptr, len(handles))
	copy(s, handles)
	slices.Sort(s)
	s = slices.Compact(s)

	var b strings.Builder
	for _, h := range s {
		b.WriteString(strconv.FormatUint(uint64(h), 16))
		b.WriteByte(',')
	}
	return b.String()
}
