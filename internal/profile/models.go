package profile

import "strings"

// Profile is the signed-in user as shown to presentation consumers
type Profile struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	LoginName string `json:"login_name"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AvatarChanged is published after a new avatar URL was fetched
type AvatarChanged struct {
	URL string
}

type profileImage struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// profileResult is the body of GET /me
type profileResult struct {
	Username     string        `json:"username"`
	FirstName    *string       `json:"first_name"`
	LastName     *string       `json:"last_name"`
	Bio          *string       `json:"bio"`
	ProfileImage *profileImage `json:"profile_image"`
}

// userResult is the part of GET /users/{username} we read
type userResult struct {
	ProfileImage profileImage `json:"profile_image"`
}

func newProfile(r profileResult) Profile {
	p := Profile{
		Username:  r.Username,
		Name:      strings.TrimSpace(deref(r.FirstName) + " " + deref(r.LastName)),
		LoginName: "@" + r.Username,
		Bio:       deref(r.Bio),
	}
	if r.ProfileImage != nil {
		p.AvatarURL = r.ProfileImage.Small
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
