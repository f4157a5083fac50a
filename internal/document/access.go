package document

// CanRead reports whether caller may read d: owners always, others only when public.
func CanRead(d *Document, callerID string) bool {
	return d.UserID == callerID || d.Access == AccessPublic
}

// CanWrite reports whether caller may mutate d. Only the owner may.
func CanWrite(d *Document, callerID string) bool {
	return d.UserID == callerID
}
