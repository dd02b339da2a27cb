package main

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/sv4u/trackdl/download/audio"
)

// surveyPrompter asks the user through terminal prompts. It serves both manual
// stream selection and the overwrite policy.
type surveyPrompter struct{}

const declineOption = "None of these"

// ChooseCandidate shows the ranked candidates and returns the chosen index, or -1.
func (surveyPrompter) ChooseCandidate(query string, candidates []audio.Candidate) (int, error) {
	options := candidateOptions(candidates)
	prompt := &survey.Select{
		Message:  fmt.Sprintf("Select a stream for %q:", query),
		Options:  options,
		PageSize: 10,
	}

	selectedIndex := 0
	if err := survey.AskOne(prompt, &selectedIndex); err != nil {
		if err == terminal.InterruptErr {
			return -1, err
		}
		return -1, fmt.Errorf("prompt failed: %w", err)
	}
	if selectedIndex >= len(candidates) {
		return -1, nil
	}
	return selectedIndex, nil
}

// ConfirmOverwrite asks whether an existing file may be replaced.
func (surveyPrompter) ConfirmOverwrite(path string) (bool, error) {
	replace := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s already exists. Overwrite?", path),
		Default: false,
	}
	if err := survey.AskOne(prompt, &replace); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return replace, nil
}

// candidateOptions renders one line per candidate plus a final option to decline them all.
func candidateOptions(candidates []audio.Candidate) []string {
	options := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		options = append(options, fmt.Sprintf("%s [%s] %s (%.0f%%)",
			c.Title, formatDuration(c.Duration), c.Uploader, c.Similarity*100))
	}
	return append(options, declineOption)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
