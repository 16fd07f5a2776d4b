package occurrence

// Deduplicate removes rows that are exact duplicates across all source-origin
// fields (see Record.NaturalKey). First occurrence wins and the remaining rows
// keep their first-seen order. Returns the surviving records and the number of
// duplicates removed.
//
// Idempotent: running it over its own output removes nothing further.
func Deduplicate(records []Record) ([]Record, int) {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	removed := 0

	for _, rec := range records {
		key := rec.NaturalKey()
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out, removed
}
