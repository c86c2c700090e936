package tsv

import (
	"fmt"
	"strings"
)

// Header maps lower-cased column names to their index.
type Header map[string]int

// NewHeader indexes the fields of a header row. Duplicate names keep the
// first position.
func NewHeader(fields [][]byte) Header {
	h := make(Header, len(fields))
	for i, f := range fields {
		name := strings.ToLower(strings.TrimSpace(string(f)))
		if _, ok := h[name]; !ok {
			h[name] = i
		}
	}
	return h
}

// Index returns the position of the first name present, or -1.
func (h Header) Index(names ...string) int {
	for _, name := range names {
		if idx, ok := h[strings.ToLower(name)]; ok {
			return idx
		}
	}
	return -1
}

// Require resolves every column, each given as a list of accepted aliases.
func (h Header) Require(columns ...[]string) ([]int, error) {
	out := make([]int, len(columns))
	var missing []string
	for i, aliases := range columns {
		out[i] = h.Index(aliases...)
		if out[i] < 0 {
			missing = append(missing, aliases[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required headers missing: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// IsNull reports whether a field holds one of the null spellings used by
// annotation tools.
func IsNull(b []byte) bool {
	switch string(b) {
	case "", "-", ".", "None", "NA", "nan", "NaN":
		return true
	}
	return false
}

// Nullable returns the field as a string, with null spellings mapped to "".
func Nullable(b []byte) string {
	if IsNull(b) {
		return ""
	}
	return string(b)
}
