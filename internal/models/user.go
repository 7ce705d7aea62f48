package models

import "time"

// Roles carried by a session.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a registry account. Students carry the reviewed fields of their
// scanned ID document.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash  string    `gorm:"not null" json:"-"`
	FullName      string    `gorm:"size:255;not null" json:"fullName"`
	Role          string    `gorm:"size:20;not null;default:student" json:"role"`
	StudentID     *string   `gorm:"uniqueIndex;size:32" json:"studentId,omitempty"`
	Phone         string    `gorm:"size:50" json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	DateOfBirth   string    `gorm:"size:20" json:"dateOfBirth,omitempty"`
	Gender        string    `gorm:"size:20" json:"gender,omitempty"`
	IDNumber      string    `gorm:"size:50" json:"idNumber,omitempty"`
	GuardianName  string    `gorm:"size:255" json:"guardianName,omitempty"`
	GuardianPhone string    `gorm:"size:50" json:"guardianPhone,omitempty"`
	GuardianEmail string    `gorm:"size:255" json:"guardianEmail,omitempty"`
	GradeLevel    string    `gorm:"size:20" json:"gradeLevel,omitempty"`
	Status        string    `gorm:"size:20;default:active" json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
