package Models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleManager || r == RoleUser
}

type User struct {
	gorm.Model
	FirstName   string     `json:"firstName" gorm:"size:100;not null"`
	LastName    string     `json:"lastName" gorm:"size:100;default:''"`
	Email       string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password    []byte     `json:"-"`
	Role        string     `json:"role" gorm:"size:20;default:user"`
	LastLoginAt *time.Time `json:"lastLoginAt"`

	ManagedProjects []Project `json:"managedProjects,omitempty" gorm:"foreignKey:AssignedManagerID"`
	Tasks           []Task    `json:"tasks,omitempty" gorm:"many2many:task_assignments;"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
