package core

// prompts.go holds the prompt text sent to the model.

import (
	"bytes"
	"text/template"
)

// SystemInstruction is the fixed system message for every extraction.
const SystemInstruction = "You are a clinical documentation assistant."

// summaryPromptTmpl is the user message.  FormatInstructions is generated
// from the VisitSummary schema; Transcript is inserted verbatim.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(
	"Given the raw transcript of a patient-doctor consultation, generate a visit\n" +
		"summary that **strictly** matches the JSON schema below. Use only facts stated\n" +
		"in the transcript.\n\n" +
		"{{.FormatInstructions}}\n\n" +
		"Transcript:\n" +
		"```text\n" +
		"{{.Transcript}}\n" +
		"```"))

// renderPrompt executes the summary template.
func renderPrompt(formatInstructions, transcript string) (string, error) {
	var buf bytes.Buffer
	err := summaryPromptTmpl.Execute(&buf, struct {
		FormatInstructions string
		Transcript         string
	}{formatInstructions, transcript})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
