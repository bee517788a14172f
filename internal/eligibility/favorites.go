package eligibility

// AddedFavorites returns the ids present in after but not in before, in the
// order they appear in after. Duplicates in after are reported once.
func AddedFavorites(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, id := range before {
		seen[id] = struct{}{}
	}

	var added []string
	for _, id := range after {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, id)
	}
	return added
}

// NotifiesOwner reports whether a favorite by actorID on a listing owned by
// ownerID is worth telling the owner about.
func NotifiesOwner(actorID, ownerID string) bool {
	return ownerID != "" && ownerID != actorID
}
