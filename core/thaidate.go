package core

import (
	"fmt"
	"time"
)

// BuddhistEraOffset is the difference between the Thai Buddhist calendar year and the Gregorian one.
const BuddhistEraOffset = 543

// DateLayout is how dates are typed in forms: day/month/year.
const DateLayout = "02/01/2006"

func BuddhistYear(gregorian int) int { return gregorian + BuddhistEraOffset }
func GregorianYear(buddhist int) int { return buddhist - BuddhistEraOffset }

// BuddhistDate formats t as dd/mm/yyyy with a Buddhist year, "-" for the zero time.
func BuddhistDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), BuddhistYear(t.Year()))
}

// ParseDate parses a dd/mm/yyyy date, returning the zero time when s is not one.
func ParseDate(s string) time.Time {
	t, err := time.Parse(DateLayout, CleanString(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
