package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/amishk599/geolens/internal/ai"
	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/store"
)

// Exit statuses.
const (
	exitError       = 1
	exitUnavailable = 3 // the model backend failed or returned an unusable reply
	exitBadInput    = 4 // unknown sample, unsupported or oversized image
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, ai.ErrAnalysisUnavailable):
		return exitUnavailable
	case errors.Is(err, store.ErrSampleNotFound),
		errors.Is(err, intake.ErrUnsupportedMIME),
		errors.Is(err, intake.ErrImageTooLarge):
		return exitBadInput
	default:
		return exitError
	}
}
