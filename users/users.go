package users

import (
	"maps"

	"github.com/jrsteele09/go-meet-client/internal/utils"
)

// Profile is the current user's profile as served by the users service.
type Profile struct {
	Username          string            `json:"username"`                     // Unique username, never changed by an edit
	Name              string            `json:"name,omitempty"`               // Display name
	ProfilePic        string            `json:"profile_pic,omitempty"`        // URL of the avatar image
	Bio               string            `json:"bio,omitempty"`                // Free text shown on the profile page
	MobileNo          string            `json:"mobile_no,omitempty"`          // Only present on the owner's own profile
	TimeZone          string            `json:"time_zone,omitempty"`          // IANA zone used to render meeting times
	SocialMedia       map[string]string `json:"social_media,omitempty"`       // Network name -> handle or URL
	Industry          string            `json:"industry,omitempty"`           // Industry the user works in
	Company           string            `json:"company,omitempty"`            // Employer
	CalendarConnected bool              `json:"calendar_connected,omitempty"` // An external calendar is linked
}

// Equal reports whether p and o describe the same profile. Two nil profiles are equal.
func (p *Profile) Equal(o *Profile) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Username == o.Username &&
		p.Name == o.Name &&
		p.ProfilePic == o.ProfilePic &&
		p.Bio == o.Bio &&
		p.MobileNo == o.MobileNo &&
		p.TimeZone == o.TimeZone &&
		maps.Equal(p.SocialMedia, o.SocialMedia) &&
		p.Industry == o.Industry &&
		p.Company == o.Company &&
		p.CalendarConnected == o.CalendarConnected
}

// ProfileUpdate is a partial edit. Nil fields are left unchanged by the server.
type ProfileUpdate struct {
	Name        *string           `json:"name,omitempty"`
	ProfilePic  *string           `json:"profile_pic,omitempty"`
	Bio         *string           `json:"bio,omitempty"`
	MobileNo    *string           `json:"mobile_no,omitempty"`
	TimeZone    *string           `json:"time_zone,omitempty"`
	SocialMedia map[string]string `json:"social_media,omitempty"`
	Industry    *string           `json:"industry,omitempty"`
	Company     *string           `json:"company,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.ProfilePic == nil && u.Bio == nil && u.MobileNo == nil &&
		u.TimeZone == nil && u.SocialMedia == nil && u.Industry == nil && u.Company == nil
}

// Apply returns a copy of p with the set fields of u written over it.
func (u ProfileUpdate) Apply(p Profile) Profile {
	p.Name = utils.ValueOr(u.Name, p.Name)
	p.ProfilePic = utils.ValueOr(u.ProfilePic, p.ProfilePic)
	p.Bio = utils.ValueOr(u.Bio, p.Bio)
	p.MobileNo = utils.ValueOr(u.MobileNo, p.MobileNo)
	p.TimeZone = utils.ValueOr(u.TimeZone, p.TimeZone)
	p.Industry = utils.ValueOr(u.Industry, p.Industry)
	p.Company = utils.ValueOr(u.Company, p.Company)
	if u.SocialMedia != nil {
		p.SocialMedia = maps.Clone(u.SocialMedia)
	} else {
		p.SocialMedia = maps.Clone(p.SocialMedia)
	}
	return p
}
