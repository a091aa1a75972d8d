package Models

import "gorm.io/gorm"

// DeviceToken is an FCM registration token tied to a user. A user may hold
// several tokens, one per device.
type DeviceToken struct {
	gorm.Model
	UserID uint   `json:"userId" gorm:"index;not null"`
	Value  string `json:"value" gorm:"size:512;uniqueIndex;not null"`
}
