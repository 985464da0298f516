package email

import (
	"fmt"
	"time"

	"github.com/matcornic/hermes/v2"
)

// ResetSubject is the subject line of password reset mail
const ResetSubject = "Reset your password"

// ResetRenderer renders password reset messages
type ResetRenderer struct {
	h hermes.Hermes
}

// NewResetRenderer creates a renderer branded with the product name and link
func NewResetRenderer(productName, productLink string) *ResetRenderer {
	return &ResetRenderer{
		h: hermes.Hermes{
			Theme: new(hermes.Default),
			Product: hermes.Product{
				Name:      productName,
				Link:      productLink,
				Copyright: fmt.Sprintf("Copyright © %d %s", time.Now().Year(), productName),
			},
		},
	}
}

// Render builds the text and HTML bodies carrying a one-time code
func (r *ResetRenderer) Render(name, code string, validFor time.Duration) (Body, error) {
	msg := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				"We received a request to reset your password.",
			},
			Dictionary: []hermes.Entry{
				{Key: "Code", Value: code},
				{Key: "Valid for", Value: fmt.Sprintf("%d minutes", int(validFor.Minutes()))},
			},
			Outros: []string{
				"If you didn't request a password reset, you can ignore this email.",
			},
		},
	}

	text, err := r.h.GeneratePlainText(msg)
	if err != nil {
		return Body{}, fmt.Errorf("render reset text: %w", err)
	}
	html, err := r.h.GenerateHTML(msg)
	if err != nil {
		return Body{}, fmt.Errorf("render reset html: %w", err)
	}
	return Body{Text: text, HTML: html}, nil
}
