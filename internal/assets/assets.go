// Package assets holds static files bundled into the binary.
package assets

import _ "embed"

// DefaultProfileName is the file name of the avatar given to new accounts.
const DefaultProfileName = "default-profile.png"

// DefaultProfile is the PNG uploaded as a new account's profile image.
//
//go:embed default-profile.png
var DefaultProfile []byte
