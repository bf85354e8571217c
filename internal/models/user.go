package models

import (
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// VerificationStatus tracks doctor credential review.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// AccountActive is the account_status value that permits login. Accounts are
// never hard-deleted; deactivation flips this field.
const AccountActive = "active"

// User represents a user in the system
type User struct {
	BaseModel
	Email              string             `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password           string             `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Name               string             `gorm:"size:200" json:"name"`
	Phone              string             `gorm:"size:30" json:"phone,omitempty"`
	Avatar             string             `gorm:"size:500" json:"avatar,omitempty"`
	Role               Role               `gorm:"size:20;default:'PATIENT'" json:"role"`
	IsVerified         bool               `gorm:"default:false" json:"isVerified"`
	VerificationStatus VerificationStatus `gorm:"size:20;default:'PENDING'" json:"verificationStatus"`
	AccountStatus      string             `gorm:"size:20;default:'active'" json:"accountStatus"`

	// Relations (not always preloaded)
	RefreshTokens       []RefreshToken  `gorm:"foreignKey:UserID" json:"-"`
	PatientProfile      *PatientProfile `gorm:"foreignKey:UserID" json:"-"`
	DoctorProfile       *DoctorProfile  `gorm:"foreignKey:UserID" json:"-"`
	DoctorAppointments  []Appointment   `gorm:"foreignKey:DoctorID" json:"-"`
	PatientAppointments []Appointment   `gorm:"foreignKey:PatientID" json:"-"`
	MedicalRecords      []MedicalRecord `gorm:"foreignKey:PatientID" json:"-"`
	SentMessages        []Message       `gorm:"foreignKey:SenderID" json:"-"`
	ReceivedMessages    []Message       `gorm:"foreignKey:ReceiverID" json:"-"`
	Notifications       []Notification  `gorm:"foreignKey:UserID" json:"-"`
	Warnings            []Warning       `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	Phone              string             `json:"phone,omitempty"`
	Avatar             string             `json:"avatar,omitempty"`
	Role               Role               `json:"role"`
	IsVerified         bool               `json:"isVerified"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	AccountStatus      string             `json:"accountStatus"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// CanLogin reports whether the account status and, for doctors, the
// verification status permit a login.
func (u *User) CanLogin() bool {
	if u.AccountStatus != AccountActive {
		return false
	}
	if u.Role == RoleDoctor && u.VerificationStatus != VerificationVerified {
		return false
	}
	return true
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Phone:              u.Phone,
		Avatar:             u.Avatar,
		Role:               u.Role,
		IsVerified:         u.IsVerified,
		VerificationStatus: u.VerificationStatus,
		AccountStatus:      u.AccountStatus,
	}
}
