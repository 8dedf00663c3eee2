package prompt

import (
	"github.com/manifoldco/promptui"
)

// SelectOption is one entry of a selection menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

var menuTemplates = promptui.SelectTemplates{
	Label:    "{{ . }}",
	Active:   "> {{ .Label | cyan }}",
	Inactive: "  {{ .Label }}",
	Selected: "{{ .Label | faint }}",
	Details:  `{{ if .Description }}{{ .Description | faint }}{{ end }}`,
}

// Select shows options and returns the chosen value.
func Select(label string, options []SelectOption) (string, error) {
	return SelectCurrent(label, options, "")
}

// SelectCurrent is Select with the cursor starting on the option whose value
// is current.
func SelectCurrent(label string, options []SelectOption, current string) (string, error) {
	templates := menuTemplates
	p := promptui.Select{
		Label:        label,
		Items:        options,
		Templates:    &templates,
		Size:         len(options),
		CursorPos:    indexOf(options, current),
		HideSelected: true,
	}

	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}

func indexOf(options []SelectOption, value string) int {
	for i, o := range options {
		if o.Value == value {
			return i
		}
	}
	return 0
}
