package formatter

import "fmt"

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return "{{header .}}\n{{snippet .}}{{underline .}}\n"
}

// ProgramIssueFormatter lays out issues that concern the whole program
// rather than a location, such as corrections that never settled.
type ProgramIssueFormatter struct{}

func (f *ProgramIssueFormatter) IssueTemplate() string {
	return "{{header .}}\n{{message .}}\n"
}

// ConfigFixFormatter is used by rules whose fix comes from the fix
// configuration. Errors point at the entry that would let them apply.
type ConfigFixFormatter struct{}

func (f *ConfigFixFormatter) IssueTemplate() string {
	return `{{header .}}
{{snippet .}}{{underline .}}{{if eq .Severity "ERROR"}}{{configHelp .Gutter .Rule}}{{end}}
`
}

func configHelp(padding string, rule string) string {
	key := "disallowedFunctions"
	switch rule {
	case ImplicitFunction:
		key = "implicitCalls"
	case MissingReturn:
		key = "defaultValues"
	}
	return gutterStyle.Sprintf("%s= ", padding) +
		helpStyle.Sprint("help: ") +
		fmt.Sprintf("add an entry to %q in the fix configuration\n", key)
}
