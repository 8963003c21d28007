package core

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-summary/pkg"
)

func fullSummary() *pkg.VisitSummary {
	return &pkg.VisitSummary{
		PatientName: "John Doe",
		Diagnosis:   "Mild hypertension",
		Medications: []pkg.Medication{
			{Name: "Lisinopril", Dosage: "10mg", Frequency: "once daily"},
			{Name: "Aspirin", Frequency: "as needed"},
			{Name: "Vitamin D"},
		},
		Referrals: []pkg.Referral{
			{Specialist: "Cardiology", Location: "City Heart Clinic", Contact: "555-0100"},
			{Specialist: "Dietitian"},
		},
		Recommendations: "Reduce salt intake.",
		NextAppointment: "2025-07-01T09:30",
		ContactEmail:    "john@example.com",
		ContactPhone:    "555-0199",
	}
}

func TestFormatSummary_Full(t *testing.T) {
	got := FormatSummary(fullSummary())

	for _, want := range []string{
		"Hi John Doe,",
		"🩺 Diagnosis:\nMild hypertension\n",
		"- Lisinopril (10mg, once daily)\n",
		"- Aspirin (as needed)\n",
		"- Vitamin D\n",
		"- Cardiology (City Heart Clinic, contact: 555-0100)\n",
		"- Dietitian (No location)\n",
		"📝 Recommendations:\nReduce salt intake.\n",
		"📅 Next Appointment:\n2025-07-01 09:30\n",
		"Email: john@example.com\n",
		"Phone: 555-0199\n",
		mockFooter,
	} {
		assert.Contains(t, got, want)
	}
}

func TestFormatSummary_MinimalIsTotal(t *testing.T) {
	v := &pkg.VisitSummary{Diagnosis: "Common cold"}

	got := FormatSummary(v)
	require.NotEmpty(t, got)

	assert.Contains(t, got, "Hi there,")
	assert.Contains(t, got, "💊 Medications:\n\n")
	assert.Contains(t, got, "➡️ Referrals:\n\n")
	assert.Contains(t, got, "📅 Next Appointment:\nNot scheduled\n")
	assert.NotContains(t, got, "📞 Contact:")
}

func TestFormatSummary_Idempotent(t *testing.T) {
	for _, v := range []*pkg.VisitSummary{fullSummary(), {}, {Medications: []pkg.Medication{}, Referrals: []pkg.Referral{}}} {
		assert.Equal(t, FormatSummary(v), FormatSummary(v))
	}
}

func TestFormatAppointment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "Not scheduled"},
		{"   ", "Not scheduled"},
		{"2025-07-01T09:30:00Z", "2025-07-01 09:30"},
		{"2025-07-01T09:30:00+02:00", "2025-07-01 09:30"},
		{"2025-07-01T09:30", "2025-07-01 09:30"},
		{"2025-07-01 14:05", "2025-07-01 14:05"},
		{"2025-07-01", "2025-07-01"},
		{"in two weeks", "in two weeks"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAppointment(tt.in), "input %q", tt.in)
	}
}

func TestParseAppointment(t *testing.T) {
	_, ok := ParseAppointment("next Tuesday")
	assert.False(t, ok)

	tm, ok := ParseAppointment("2025-12-24 08:15")
	require.True(t, ok)
	assert.Equal(t, 2025, tm.Year())
	assert.Equal(t, 15, tm.Minute())
}

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	s := LogSender{Log: zerolog.New(&buf)}

	resp, err := s.Send(context.Background(), fullSummary(), FormatSummary(fullSummary()))
	require.NoError(t, err)

	assert.Equal(t, pkg.SendSummaryResponse{Message: NoChannelsMessage}, resp)
	assert.Contains(t, buf.String(), "summary delivery skipped")
	assert.NotContains(t, buf.String(), "John Doe")
}

func TestLogSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LogSender{Log: zerolog.Nop()}.Send(ctx, fullSummary(), "msg")
	assert.ErrorIs(t, err, context.Canceled)
}
