package app

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"
)

// Credentials are the account details entered at sign-in.
type Credentials struct {
	Email    string
	Password string
}

// PromptLogin asks for whichever of the credentials are missing. It returns
// huh.ErrUserAborted when the form is cancelled.
func PromptLogin(c Credentials) (Credentials, error) {
	if c.Email != "" && c.Password != "" {
		return c, nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("이메일").
				Placeholder("you@example.com").
				Value(&c.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("비밀번호").
				EchoMode(huh.EchoModePassword).
				Value(&c.Password).
				Validate(validateRequired("비밀번호")),
		),
	)
	if err := form.Run(); err != nil {
		return Credentials{}, err
	}
	c.Email = strings.TrimSpace(c.Email)
	return c, nil
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s을(를) 입력해 주세요", field)
		}
		return nil
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("이메일을 입력해 주세요")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("올바른 이메일 형식이 아니에요")
	}
	return nil
}
