package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"stayloft/pkg/locale"
)

func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	// Regions whose dialing prefix matches the input parse first, so a
	// number written without "+" still lands on its own country.
	for _, region := range locale.RegionsForPhone(phone) {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}
