package model

// UserData is a login account. Its key name is the login, which is also the
// user id carried in issued tokens.
type UserData struct {
	Key            *Key   `json:"-" bson:"-"`
	Login          string `json:"login" bson:"login"`
	HashedPassword string `json:"password_hash" bson:"password_hash"`
	Email          string `json:"email" bson:"email"`
	DisplayName    string `json:"display_name" bson:"display_name"`
}

func (u *UserData) SetKey(k *Key) { u.Key = k }

func AccountKey(login string) *Key {
	return NameKey(KindAccount, login, nil)
}
