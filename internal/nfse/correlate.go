package nfse

// LatestRecordID returns the numerically largest remote id among the given
// records. The authority offers no lookup-by-reference call, so the record
// with the highest id inside the submission-day window is taken as the one a
// just-completed submission created. This is a best-effort heuristic: if an
// authority API version ever exposes a real reference field, callers should
// use it and skip this function entirely. Records whose id does not parse as
// a number are ignored.
func LatestRecordID(records []RemoteRecord) (int64, bool) {
	var (
		max   int64
		found bool
	)
	for _, r := range records {
		id, err := r.NumericID()
		if err != nil {
			continue
		}
		if !found || id > max {
			max = id
			found = true
		}
	}
	return max, found
}
