// Package prompt provides the interactive terminal prompts used by browse
// and generate.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// ValidateRow returns a validator accepting 1-based row numbers in [1, max].
func ValidateRow(max int) func(string) error {
	return func(input string) error {
		n, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return fmt.Errorf("must be a valid integer")
		}
		if n < 1 || n > max {
			return fmt.Errorf("must be between 1 and %d", max)
		}
		return nil
	}
}

// InputRow prompts for a 1-based row number in [1, max] and returns it
// 0-based.
func InputRow(label string, current, max int) (int, error) {
	prompt := promptui.Prompt{
		Label:    fmt.Sprintf("%s (1-%d)", label, max),
		Default:  strconv.Itoa(current + 1),
		Validate: ValidateRow(max),
	}

	result, err := prompt.Run()
	if err != nil {
		return 0, wrapError(err)
	}

	n, _ := strconv.Atoi(strings.TrimSpace(result)) // Already validated
	return n - 1, nil
}
