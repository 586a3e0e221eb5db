// Package letter fills cancellation letter templates and exports them.
package letter

import (
	"regexp"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/gemini"
)

// Keys are the placeholder names a template may contain, in form order.
var Keys = gemini.Placeholders

// Labels are the English form labels for each key.
var Labels = map[string]string{
	"AnbieterName":   "Provider name",
	"AnbieterStraße": "Provider street",
	"AnbieterPLZOrt": "Provider postcode and city",
	"Vorname":        "First name",
	"Nachname":       "Last name",
	"EigeneStraße":   "Your street",
	"EigenePLZ":      "Your postcode",
	"EigenerOrt":     "Your city",
	"Datum":          "Date",
	"Kundennummer":   "Customer number",
	"Vertragsnummer": "Contract number (optional)",
}

// Values maps placeholder keys to user-entered text.
type Values map[string]string

var contractLine = regexp.MustCompile(`.*\[Vertragsnummer\].*\n?`)

// DefaultValues returns empty values with today's date pre-filled.
func DefaultValues(now time.Time) Values {
	v := make(Values, len(Keys))
	for _, k := range Keys {
		v[k] = ""
	}
	v["Datum"] = now.Format("02.01.2006")
	return v
}

// Fill substitutes placeholders in tmpl. Without a contract number every
// line mentioning it is removed. Placeholders whose value is empty stay in
// the text so the gap is visible.
func Fill(tmpl string, values Values) string {
	out := tmpl
	if strings.TrimSpace(values["Vertragsnummer"]) == "" {
		out = contractLine.ReplaceAllString(out, "")
	}
	for _, k := range Keys {
		v := values[k]
		if v == "" {
			continue
		}
		out = strings.ReplaceAll(out, "["+k+"]", v)
	}
	return out
}

// Missing returns the keys still present as placeholders in text.
func Missing(text string) []string {
	var keys []string
	for _, k := range Keys {
		if strings.Contains(text, "["+k+"]") {
			keys = append(keys, k)
		}
	}
	return keys
}
