package domain

// UserType is a custom type for our account-type ENUM
type UserType string

const (
	UserTypeRegular UserType = "regular"
	UserTypeAgent   UserType = "agent"
)

// User represents the signed-in account held by the session.
// JSON keys match the record the web client keeps under localStorage["user"].
type User struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Email                   string   `json:"email"`
	Phone                   *string  `json:"phone,omitempty"` // Nullable
	Type                    UserType `json:"type,omitempty"`
	CreditBalance           int      `json:"creditBalance"`
	HasBusinessRegistration bool     `json:"hasBusinessRegistration"`
	HasNationalID           bool     `json:"hasNationalId"`
}

// IsAgent reports whether the user signed up as a service provider.
func (u *User) IsAgent() bool {
	return u != nil && u.Type == UserTypeAgent
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Name                    *string
	Email                   *string
	Phone                   *string
	Type                    *UserType
	CreditBalance           *int
	HasBusinessRegistration *bool
	HasNationalID           *bool
}

// Apply merges the patch into a copy of u and returns the copy.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		phone := *p.Phone
		u.Phone = &phone
	}
	if p.Type != nil {
		u.Type = *p.Type
	}
	if p.CreditBalance != nil {
		u.CreditBalance = *p.CreditBalance
	}
	if p.HasBusinessRegistration != nil {
		u.HasBusinessRegistration = *p.HasBusinessRegistration
	}
	if p.HasNationalID != nil {
		u.HasNationalID = *p.HasNationalID
	}
	return u
}
