package model

import "slices"

type TeeShirtSize string

const (
	TeeShirtNotSpecified TeeShirtSize = "NOT_SPECIFIED"
	TeeShirtXSM          TeeShirtSize = "XS_M"
	TeeShirtXSW          TeeShirtSize = "XS_W"
	TeeShirtSM           TeeShirtSize = "S_M"
	TeeShirtSW           TeeShirtSize = "S_W"
	TeeShirtMM           TeeShirtSize = "M_M"
	TeeShirtMW           TeeShirtSize = "M_W"
	TeeShirtLM           TeeShirtSize = "L_M"
	TeeShirtLW           TeeShirtSize = "L_W"
	TeeShirtXLM          TeeShirtSize = "XL_M"
	TeeShirtXLW          TeeShirtSize = "XL_W"
	TeeShirtXXLM         TeeShirtSize = "XXL_M"
	TeeShirtXXLW         TeeShirtSize = "XXL_W"
	TeeShirtXXXLM        TeeShirtSize = "XXXL_M"
	TeeShirtXXXLW        TeeShirtSize = "XXXL_W"
)

var teeShirtSizes = []TeeShirtSize{
	TeeShirtNotSpecified,
	TeeShirtXSM, TeeShirtXSW, TeeShirtSM, TeeShirtSW, TeeShirtMM, TeeShirtMW,
	TeeShirtLM, TeeShirtLW, TeeShirtXLM, TeeShirtXLW, TeeShirtXXLM, TeeShirtXXLW,
	TeeShirtXXXLM, TeeShirtXXXLW,
}

func ParseTeeShirtSize(s string) (TeeShirtSize, bool) {
	size := TeeShirtSize(s)
	return size, slices.Contains(teeShirtSizes, size)
}

// Identity is the caller as resolved from the access token.
type Identity struct {
	UserID   string
	Email    string
	Nickname string
}

type Profile struct {
	Key                    *Key         `json:"-" bson:"-"`
	DisplayName            string       `json:"displayName" bson:"displayName"`
	MainEmail              string       `json:"mainEmail" bson:"mainEmail"`
	TeeShirtSize           TeeShirtSize `json:"teeShirtSize" bson:"teeShirtSize"`
	ConferenceKeysToAttend []string     `json:"conferenceKeysToAttend" bson:"conferenceKeysToAttend"`
	WishlistKeys           []string     `json:"wishlistKeys" bson:"wishlistKeys"`
}

func (p *Profile) SetKey(k *Key) { p.Key = k }

func ProfileKey(userID string) *Key {
	return NameKey(KindProfile, userID, nil)
}

// NewProfile returns the profile created on first access for an identity.
func NewProfile(id Identity) *Profile {
	return &Profile{
		Key:          ProfileKey(id.UserID),
		DisplayName:  id.Nickname,
		MainEmail:    id.Email,
		TeeShirtSize: TeeShirtNotSpecified,
	}
}

func (p *Profile) IsAttending(websafeKey string) bool {
	return slices.Contains(p.ConferenceKeysToAttend, websafeKey)
}

func (p *Profile) Attend(websafeKey string) {
	p.ConferenceKeysToAttend = append(p.ConferenceKeysToAttend, websafeKey)
}

// Unattend removes the key and reports whether it was present.
func (p *Profile) Unattend(websafeKey string) bool {
	i := slices.Index(p.ConferenceKeysToAttend, websafeKey)
	if i < 0 {
		return false
	}
	p.ConferenceKeysToAttend = slices.Delete(p.ConferenceKeysToAttend, i, i+1)
	return true
}

func (p *Profile) HasWish(websafeKey string) bool {
	return slices.Contains(p.WishlistKeys, websafeKey)
}

func (p *Profile) AddWish(websafeKey string) {
	p.WishlistKeys = append(p.WishlistKeys, websafeKey)
}

func (p *Profile) RemoveWish(websafeKey string) bool {
	i := slices.Index(p.WishlistKeys, websafeKey)
	if i < 0 {
		return false
	}
	p.WishlistKeys = slices.Delete(p.WishlistKeys, i, i+1)
	return true
}
