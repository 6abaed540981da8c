package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email" gorm:"uniqueIndex"`
	PhoneNumber         string         `json:"phoneNumber"`
	Password            string         `json:"password"`
	AvatarURL           string         `json:"avatarURL"`
	Bio                 string         `json:"bio"`
	Properties          []Property     `json:"properties" gorm:"foreignKey:AgentID;references:ID"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
	IsVerified          *bool          `json:"isVerified"`
	Role                string         `json:"role" gorm:"type:varchar(20);default:tenant;index"` // tenant, agent, admin
}

// Custom JSON marshaling to handle JSON fields properly
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		PushTokens []string `json:"pushTokens,omitempty"`
		Password   string   `json:"password,omitempty"`
		*Alias
	}{
		PushTokens: []string{},
		Alias:      (*Alias)(u),
	}

	// Parse PushTokens JSON
	if u.PushTokens != nil {
		var tokens []string
		if err := json.Unmarshal(u.PushTokens, &tokens); err == nil {
			aux.PushTokens = tokens
		}
	}

	// Never leak the password hash
	aux.Password = ""

	return json.Marshal(aux)
}
