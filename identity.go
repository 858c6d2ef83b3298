package auth

var _ Identity = (*userIdentity)(nil)

type userIdentity struct {
	user *User
}

// NewIdentityFromUser adapts a directory record to the Identity interface.
// Returns nil for a nil record.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return &userIdentity{user: user}
}

func (i *userIdentity) ID() string {
	return i.user.ID.String()
}

func (i *userIdentity) Email() string {
	return i.user.Email
}

func (i *userIdentity) DisplayName() string {
	return i.user.DisplayName
}

func (i *userIdentity) Role() string {
	return string(i.user.Role)
}
