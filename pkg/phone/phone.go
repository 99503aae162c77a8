// Package phone validates and formats Israeli mobile numbers.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const Region = "IL"

var (
	localMobile    = regexp.MustCompile(`^05\d{8}$`)
	e164Mobile     = regexp.MustCompile(`^\+9725\d{8}$`)
	intlNoPlus     = regexp.MustCompile(`^9725\d{8}$`)
	separatorChars = strings.NewReplacer("-", "", " ", "")
)

// IsLocalMobile reports whether s is a local mobile number (05XXXXXXXX).
func IsLocalMobile(s string) bool {
	return localMobile.MatchString(s)
}

// ToE164 accepts +9725XXXXXXXX, 05XXXXXXXX or 9725XXXXXXXX, ignoring
// dashes and spaces, and returns +9725XXXXXXXX.
func ToE164(s string) (string, bool) {
	p := separatorChars.Replace(strings.TrimSpace(s))

	switch {
	case e164Mobile.MatchString(p), localMobile.MatchString(p):
	case intlNoPlus.MatchString(p):
		p = "+" + p
	default:
		return "", false
	}

	num, err := phonenumbers.Parse(p, Region)
	if err != nil {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// WhatsAppAddress normalises a configured WhatsApp recipient. It accepts
// "whatsapp:+..." or "+..." and ignores anything after the first space.
func WhatsAppAddress(s string) (string, bool) {
	v := strings.TrimSpace(s)
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	switch {
	case v == "":
		return "", false
	case strings.HasPrefix(v, "whatsapp:"):
		return v, true
	case strings.HasPrefix(v, "+"):
		return "whatsapp:" + v, true
	default:
		return "", false
	}
}
