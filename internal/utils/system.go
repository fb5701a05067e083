package utils

import (
	"os/user"
	"strings"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// DefaultOwner returns the name recorded as the artifact owner when none is
// configured: the account's full name if set, else its username.
func DefaultOwner() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}
