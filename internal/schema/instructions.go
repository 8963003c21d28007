package schema

import "strings"

const fence = "```"

// formatInstructions wraps the indented schema document in the guidance the
// model sees.  The example teaches the difference between a schema and an
// instance of it, which models otherwise confuse.
func formatInstructions(schemaDoc []byte) string {
	var b strings.Builder
	b.WriteString("The output must be a single JSON object that conforms to the JSON schema below.\n")
	b.WriteString("Use exactly the property names shown. Every property listed under \"required\" must be present; ")
	b.WriteString("use an empty array for lists with no entries and leave out optional properties the transcript does not support. ")
	b.WriteString("Do not add properties that are not in the schema.\n\n")
	b.WriteString(`As an example, for the schema {"properties": {"foo": {"type": "array", "items": {"type": "string"}}}, "required": ["foo"]} `)
	b.WriteString(`the object {"foo": ["bar", "baz"]} is a well-formatted instance of the schema. `)
	b.WriteString(`The object {"properties": {"foo": ["bar", "baz"]}} is not well-formatted.` + "\n\n")
	b.WriteString("Here is the output schema:\n")
	b.WriteString(fence + "json\n")
	b.Write(schemaDoc)
	b.WriteString("\n" + fence + "\n\n")
	b.WriteString("Respond with the JSON object only, with no explanation before or after it.")
	return b.String()
}
