package services

// Actor is the authenticated user on whose behalf a service call runs.
type Actor struct {
	UserID  string
	IsStaff bool
}

// CanAccess reports whether the actor may see or act on data owned by ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	return a.IsStaff || a.UserID == ownerID
}
