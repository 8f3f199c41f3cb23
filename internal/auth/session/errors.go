package session

import "errors"

// ErrAvatarsDisabled is returned by UploadAvatar when no avatar storage is configured.
var ErrAvatarsDisabled = errors.New("avatar storage is not configured")
