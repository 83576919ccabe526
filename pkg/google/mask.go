package google

import "strings"

// prefixMask rewrites the detail field mask for the search response shape,
// where every field lives under the repeated "places" key.
func prefixMask(prefix string) string {
	fields := strings.Split(fieldMask, ",")
	for i, f := range fields {
		fields[i] = prefix + f
	}
	return strings.Join(fields, ",")
}
