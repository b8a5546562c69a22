// internal/models/user.go
package models

// UserPreferences mirrors the preference block returned by the user
// directory. Nil pointers mean the directory omitted the field, which is
// treated as opted out.
type UserPreferences struct {
	Push  *bool `json:"push_notifications"`
	Email *bool `json:"email_notifications"`
}

// User is the directory's view of a recipient. Read-only here.
type User struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	Email       string           `json:"email,omitempty"`
	PushToken   string           `json:"push_token,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// PushEnabled reports whether the user accepts push notifications.
func (u *User) PushEnabled() bool {
	if u.Preferences == nil || u.Preferences.Push == nil {
		return false
	}
	return *u.Preferences.Push
}

// EmailEnabled reports whether the user accepts email notifications.
func (u *User) EmailEnabled() bool {
	if u.Preferences == nil || u.Preferences.Email == nil {
		return false
	}
	return *u.Preferences.Email
}
