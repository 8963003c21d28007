package core

import (
	"strings"
	"time"

	"visit-summary/pkg"
)

const (
	appointmentLayout = "2006-01-02 15:04"
	notScheduled      = "Not scheduled"
	noLocation        = "No location"
	mockFooter        = "This is a mock summary. In real implementation, it would be sent via email and SMS."
)

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// FormatSummary renders a summary as a plain-text patient message.  It is
// pure and total: absent optional fields get placeholders and empty lists
// render as empty sections.
func FormatSummary(v *pkg.VisitSummary) string {
	var b strings.Builder

	name := strings.TrimSpace(v.PatientName)
	if name == "" {
		name = "there"
	}
	b.WriteString("Hi " + name + ",\n\n")

	b.WriteString("🩺 Diagnosis:\n")
	b.WriteString(v.Diagnosis + "\n\n")

	b.WriteString("💊 Medications:\n")
	for _, m := range v.Medications {
		b.WriteString("- " + m.Name)
		if details := joinNonEmpty(m.Dosage, m.Frequency); details != "" {
			b.WriteString(" (" + details + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("➡️ Referrals:\n")
	for _, r := range v.Referrals {
		where := r.Location
		if strings.TrimSpace(where) == "" {
			where = noLocation
		}
		if r.Contact != "" {
			where += ", contact: " + r.Contact
		}
		b.WriteString("- " + r.Specialist + " (" + where + ")\n")
	}
	b.WriteString("\n")

	b.WriteString("📝 Recommendations:\n")
	b.WriteString(v.Recommendations + "\n\n")

	b.WriteString("📅 Next Appointment:\n")
	b.WriteString(formatAppointment(v.NextAppointment) + "\n\n")

	if v.ContactEmail != "" || v.ContactPhone != "" {
		b.WriteString("📞 Contact:\n")
		if v.ContactEmail != "" {
			b.WriteString("Email: " + v.ContactEmail + "\n")
		}
		if v.ContactPhone != "" {
			b.WriteString("Phone: " + v.ContactPhone + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(mockFooter + "\n")
	return b.String()
}

// formatAppointment renders a recognised date-time as "2006-01-02 15:04"
// and anything else verbatim.
func formatAppointment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notScheduled
	}
	if t, ok := ParseAppointment(s); ok {
		return t.Format(appointmentLayout)
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly)
	}
	return s
}

// ParseAppointment interprets a next_appointment value as a date-time.  It
// reports false for free text such as "in two weeks".
func ParseAppointment(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
