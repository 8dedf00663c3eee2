package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. An empty answer yields defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}

	answer, err := p.Run()
	switch {
	case err == nil:
		return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// IsConfirm reports "n" as ErrAbort.
		return false, nil
	case answer == "":
		return defaultYes, nil
	default:
		return false, err
	}
}

// ConfirmOverwrite reports whether path may be (re)written. A missing file
// or force skips the question.
func ConfirmOverwrite(path string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	return Confirm(fmt.Sprintf("%s exists. Overwrite", path), false)
}
