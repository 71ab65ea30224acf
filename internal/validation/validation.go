// Package validation holds the form schemas of the front-end and maps
// validator failures to localisable field messages.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/abrezinsky/paredao/internal/notice"
)

// LoginForm is submitted by the login page
type LoginForm struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=4"`
	CaptchaToken string `json:"captcha_token"`
	Redirect     string `json:"redirect"`
}

// RegisterForm is submitted by the registration page
type RegisterForm struct {
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// FullName is the account name sent to the API
func (f RegisterForm) FullName() string {
	return f.Name + " " + f.Surname
}

// ParticipantForm is submitted by the create participant dialog
type ParticipantForm struct {
	Name    string `json:"name" validate:"required,min=3"`
	Surname string `json:"surname" validate:"required,min=3"`
}

// FullName is the participant name sent to the API
func (f ParticipantForm) FullName() string {
	return f.Name + " " + f.Surname
}

// EliminationForm is submitted by the create elimination dialog
type EliminationForm struct {
	ParticipantA string `json:"participant_a" validate:"required"`
	ParticipantB string `json:"participant_b" validate:"required,nefield=ParticipantA"`
}

// VoteForm is submitted by the voting page
type VoteForm struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	CaptchaToken  string `json:"captcha_token"`
}

// FieldErrors maps a form field (its json name) to the message to show under it
type FieldErrors map[string]notice.Message

// Error lets FieldErrors travel as an error
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg.ID)
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

type fieldMessages map[string]map[string]string

var messages = fieldMessages{
	"name": {
		"required": notice.NameRequired,
		"min":      notice.NameTooShort,
	},
	"surname": {
		"required": notice.SurnameRequired,
		"min":      notice.SurnameTooShort,
	},
	"email": {
		"required": notice.EmailRequired,
		"email":    notice.EmailInvalid,
	},
	"password": {
		"required": notice.PasswordRequired,
		"min":      notice.PasswordTooShort,
	},
	"participant_a": {
		"required": notice.SelectParticipant,
	},
	"participant_b": {
		"required": notice.SelectParticipant,
		"nefield":  notice.ParticipantsEqual,
	},
	"participant_id": {
		"required": notice.SelectParticipant,
	},
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims and collapses whitespace in user-entered text
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Struct validates form and returns FieldErrors, or nil when it is valid.
// Only the first failure of each field is reported.
func Struct(form any) FieldErrors {
	err := engine().Struct(form)
	if err == nil {
		return nil
	}

	fe := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe[""] = notice.Errorf(notice.Unexpected)
		return fe
	}
	for _, verr := range verrs {
		field := verr.Field()
		if _, seen := fe[field]; seen {
			continue
		}
		id := notice.FieldRequired
		if byTag, ok := messages[field]; ok {
			if msg, ok := byTag[verr.Tag()]; ok {
				id = msg
			}
		}
		fe[field] = notice.Errorf(id)
	}
	return fe
}

// Login normalizes and validates a login form
func Login(f *LoginForm) FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	return Struct(f)
}

// Register normalizes and validates a registration form
func Register(f *RegisterForm) FieldErrors {
	f.Name = Normalize(f.Name)
	f.Surname = Normalize(f.Surname)
	f.Email = strings.TrimSpace(f.Email)
	return Struct(f)
}

// Participant normalizes and validates a participant form
func Participant(f *ParticipantForm) FieldErrors {
	f.Name = Normalize(f.Name)
	f.Surname = Normalize(f.Surname)
	return Struct(f)
}

// Elimination validates an elimination form
func Elimination(f *EliminationForm) FieldErrors {
	f.ParticipantA = strings.TrimSpace(f.ParticipantA)
	f.ParticipantB = strings.TrimSpace(f.ParticipantB)
	return Struct(f)
}

// Vote validates a vote form
func Vote(f *VoteForm) FieldErrors {
	f.ParticipantID = strings.TrimSpace(f.ParticipantID)
	return Struct(f)
}
