package domain

// ChatID derives the canonical chat identifier for a pair of users: the two
// uids sorted and joined with an underscore. Both participants therefore
// address the same message list without a separate membership table.
func ChatID(uidA, uidB string) string {
	if uidA > uidB {
		uidA, uidB = uidB, uidA
	}
	return uidA + "_" + uidB
}
