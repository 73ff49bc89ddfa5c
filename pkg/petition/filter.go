package petition

import "strings"

// Criteria narrows a record set before ranking. Zero values match everything.
type Criteria struct {
	// Search is matched case-insensitively against title and description.
	Search string
	// Creator is compared case-insensitively against the creator address.
	Creator string
}

// Filter returns the records matching c, in input order.
func Filter(records []Record, c Criteria) []Record {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	creator := strings.ToLower(strings.TrimSpace(c.Creator))

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if creator != "" && strings.ToLower(r.Creator) != creator {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Description), search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Top returns at most n leading records. n <= 0 returns records unchanged.
func Top(records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
