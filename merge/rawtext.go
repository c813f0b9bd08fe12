package merge

// GetRawText resolves oid to a byte sequence, returning an empty sequence
// for the zero OID without touching the store (spec §4.2: RawTextLoader).
func GetRawText(oid OID, store ObjectStore) ([]byte, error) {
	if oid.IsZero() {
		return nil, nil
	}
	return store.Open(oid)
}
