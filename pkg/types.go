package pkg

import "time"

// VisitSummary is the structured outcome of a single consultation.  Fields
// without omitempty are required; the JSON schema sent to the model and the
// validator applied to its reply are both derived from these tags.
type VisitSummary struct {
	PatientName     string       `json:"patient_name" yaml:"patient_name" jsonschema_description:"Full name of the patient as stated in the transcript"`
	Diagnosis       string       `json:"diagnosis" yaml:"diagnosis" jsonschema_description:"Working or confirmed diagnosis in plain language"`
	Medications     []Medication `json:"medications" yaml:"medications" validate:"dive" jsonschema_description:"Medications prescribed or adjusted during the visit; empty array when none"`
	Referrals       []Referral   `json:"referrals" yaml:"referrals" validate:"dive" jsonschema_description:"Referrals to specialists or services; empty array when none"`
	Recommendations string       `json:"recommendations" yaml:"recommendations" jsonschema_description:"Lifestyle advice and follow-up instructions given to the patient"`
	NextAppointment string       `json:"next_appointment,omitempty" yaml:"next_appointment,omitempty" jsonschema_description:"Next appointment as an ISO 8601 date-time (YYYY-MM-DDTHH:MM) when known, otherwise free text"`
	ContactEmail    string       `json:"contact_email,omitempty" yaml:"contact_email,omitempty" validate:"omitempty,email" jsonschema:"format=email" jsonschema_description:"Patient email address if mentioned"`
	ContactPhone    string       `json:"contact_phone,omitempty" yaml:"contact_phone,omitempty" jsonschema_description:"Patient phone number if mentioned"`
}

// Medication is a single prescribed drug.
type Medication struct {
	Name      string `json:"name" yaml:"name" validate:"required,notblank" jsonschema_description:"Drug name"`
	Dosage    string `json:"dosage,omitempty" yaml:"dosage,omitempty" jsonschema_description:"Strength per dose, e.g. 10mg"`
	Frequency string `json:"frequency,omitempty" yaml:"frequency,omitempty" jsonschema_description:"How often it is taken, e.g. once daily"`
}

// Referral points the patient at a specialist or service.
type Referral struct {
	Specialist string `json:"specialist" yaml:"specialist" validate:"required,notblank" jsonschema_description:"Specialty or named specialist"`
	Location   string `json:"location,omitempty" yaml:"location,omitempty" jsonschema_description:"Clinic or hospital, if given"`
	Contact    string `json:"contact,omitempty" yaml:"contact,omitempty" jsonschema_description:"Phone or email for the referral, if given"`
}

// SendSummaryResponse reports which delivery channels accepted a summary.
// No channel is wired up yet, so every flag is false in practice.
type SendSummaryResponse struct {
	EmailSent            bool   `json:"email_sent" yaml:"email_sent"`
	SMSSent              bool   `json:"sms_sent" yaml:"sms_sent"`
	CalendarEventCreated bool   `json:"calendar_event_created" yaml:"calendar_event_created"`
	Message              string `json:"message,omitempty" yaml:"message,omitempty"`
}

// SummaryRequest is the body accepted by POST /summary.
type SummaryRequest struct {
	Transcript string `json:"transcript"`
}

// ErrorResponse is the body returned by the HTTP layer on any failure.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a single failure.  Field is set for schema failures
// and names the offending path, e.g. "medications[0].name".
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RunStatusOK marks an extraction run that produced a summary.  Failed runs
// carry the error kind instead.
const RunStatusOK = "ok"

// ExtractionRun is audit metadata about one pipeline invocation.  It never
// holds the transcript or the summary itself.
type ExtractionRun struct {
	ID              string        `json:"id"`
	Model           string        `json:"model"`
	TranscriptChars int           `json:"transcript_chars"`
	Status          string        `json:"status"`
	Field           string        `json:"field,omitempty"`
	Duration        time.Duration `json:"duration"`
	CreatedAt       time.Time     `json:"created_at"`
}
