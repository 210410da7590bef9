package domain

// Identity is the authenticated principal attached to a request after the
// session gate verifies its token.
type Identity struct {
	Email string `json:"email"`
}
