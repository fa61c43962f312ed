package domain

import "time"

// Image is an encoded card photo.
type Image struct {
	Data     []byte
	MimeType string
}

// Empty reports whether the image carries no payload.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// CardFields are the free-text fields read off a business card. Any subset
// may be empty.
type CardFields struct {
	FullName string `json:"fullName"`
	JobTitle string `json:"jobTitle"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Address  string `json:"address"`
}

// Contact is one scanned card. ID and ScannedAt are assigned once by the
// capture workflow; OwnerID is attached by the persistence layer.
type Contact struct {
	ID      string
	OwnerID string
	CardFields
	ScannedAt  time.Time
	FrontImage Image
	BackImage  *Image
	RawText    string
	Tags       []string
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
