package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mcnijman/go-emailaddress"

	"github.com/nomadnest/nomadnest/internal/auth"
)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validEmail(s string) error {
	if _, err := emailaddress.Parse(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

// RunUserForm asks for the account details interactively. Values already
// set in in are used as defaults.
func RunUserForm(in auth.SignupInput) (auth.SignupInput, error) {
	var confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&in.Username).
				Validate(required("username")),

			huh.NewInput().
				Title("Email").
				Placeholder("host@example.com").
				Value(&in.Email).
				Validate(validEmail),

			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&in.Password).
				Validate(required("password")),

			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != in.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return auth.SignupInput{}, err
	}
	return in, nil
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

func PrintTitle(msg string) {
	fmt.Println(headerStyle.Render(msg))
}

// PrintField prints one aligned "label value" line.
func PrintField(label, value string) {
	fmt.Println("  " + labelStyle.Render(label) + value)
}

func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

func PrintHint(msg string) {
	fmt.Println(hintStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
