package verification

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-nafath-server/nafath"
)

var birthDateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02"}

// IdentityData is the verified identity stored on a session.
type IdentityData struct {
	NationalID  string `json:"nationalId"`
	ArabicName  string `json:"arabicName"`
	EnglishName string `json:"englishName,omitempty"`
	BirthDate   string `json:"birthDate"`
	Nationality string `json:"nationality,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

func identityFromUserInfo(info *nafath.UserInfo) IdentityData {
	return IdentityData{
		NationalID:  strings.TrimSpace(info.NationalID),
		ArabicName:  strings.TrimSpace(info.ArabicName),
		EnglishName: strings.TrimSpace(info.EnglishName),
		BirthDate:   strings.TrimSpace(info.BirthDate),
		Nationality: info.Nationality,
		Gender:      info.Gender,
	}
}

// Validate requires the national id, Arabic name and a parseable birth date.
func (d *IdentityData) Validate() error {
	if d.NationalID == "" || d.ArabicName == "" || d.BirthDate == "" {
		return fmt.Errorf("identity data is missing required fields")
	}
	if _, err := ParseBirthDate(d.BirthDate); err != nil {
		return err
	}
	return nil
}

// IdentityView is the processed identity handed to the application form.
type IdentityView struct {
	FullName      string `json:"fullName"`
	NationalID    string `json:"nationalId"`
	BirthDate     string `json:"birthDate"`
	Age           int    `json:"age"`
	Verified      bool   `json:"verified"`
	TransactionID string `json:"transactionId"`
}

// NewIdentityView derives the view of a verified session at now.
func NewIdentityView(s *Session, now time.Time) (*IdentityView, error) {
	if err := s.CheckIntegrity(); err != nil {
		return nil, err
	}
	age, err := AgeOn(s.IdentityData.BirthDate, now)
	if err != nil {
		return nil, err
	}
	return &IdentityView{
		FullName:      s.IdentityData.ArabicName,
		NationalID:    s.IdentityData.NationalID,
		BirthDate:     s.IdentityData.BirthDate,
		Age:           age,
		Verified:      s.Verified,
		TransactionID: s.SessionToken,
	}, nil
}

// ParseBirthDate parses a Gregorian birth date.
func ParseBirthDate(value string) (time.Time, error) {
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid birth date %q", value)
}

// AgeOn returns the age in whole years on the calendar date of now. The year does
// not count until the birthday itself has been reached.
func AgeOn(birthDate string, now time.Time) (int, error) {
	born, err := ParseBirthDate(birthDate)
	if err != nil {
		return 0, err
	}

	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	if age < 0 {
		return 0, nil
	}
	return age, nil
}
