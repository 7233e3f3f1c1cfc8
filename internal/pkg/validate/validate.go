package validate

import (
	"html"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	emailShape   = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// Sanitize strips markup from caller supplied text and trims it. Entities the
// policy escapes are decoded again so plain text such as "ORD&1" is kept as sent.
func Sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(value)))
}

// UserID reports whether value is a 24 character hex object id.
func UserID(value string) bool {
	return validation.Validate(value, validation.Required, is.MongoID) == nil
}

// RecordID reports whether value is a canonical UUID record id.
func RecordID(value string) bool {
	if validation.Validate(value, validation.Required, is.UUID) != nil {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}

func Email(value string) bool {
	return validation.Validate(value,
		validation.Required,
		validation.Length(3, 254),
		validation.Match(emailShape),
		is.EmailFormat,
	) == nil
}
