package nafath

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingIdentityFields = errors.New("user info is missing required identity fields")

// UserInfo is the identity payload returned by the provider's user-info endpoint.
type UserInfo struct {
	NationalID  string `json:"nationalId"`
	ArabicName  string `json:"arabicName"`
	EnglishName string `json:"englishName,omitempty"`
	BirthDate   string `json:"birthDate"` // Gregorian, YYYY-MM-DD
	Nationality string `json:"nationality,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

// Validate checks the three fields the application form cannot do without.
func (u UserInfo) Validate() error {
	var missing []string
	if strings.TrimSpace(u.NationalID) == "" {
		missing = append(missing, "nationalId")
	}
	if strings.TrimSpace(u.ArabicName) == "" {
		missing = append(missing, "arabicName")
	}
	if strings.TrimSpace(u.BirthDate) == "" {
		missing = append(missing, "birthDate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingIdentityFields, strings.Join(missing, ", "))
	}
	return nil
}
