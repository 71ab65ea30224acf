// Package notice renders the transient user-facing messages (toasts)
// produced by actions, localised with go-i18n.
package notice

import (
	"embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/abrezinsky/paredao/internal/logger"
)

//go:embed active.*.toml
var localeFS embed.FS

var localeFiles = []string{"active.pt-BR.toml", "active.en.toml"}

// Kind is the severity of a notice
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
)

// Message identifiers, one per entry of the catalogue
const (
	Unexpected               = "Unexpected"
	InvalidCredentials       = "InvalidCredentials"
	AccountCreated           = "AccountCreated"
	EmailTaken               = "EmailTaken"
	CaptchaNotVerified       = "CaptchaNotVerified"
	SessionExpired           = "SessionExpired"
	VoteRequiresLogin        = "VoteRequiresLogin"
	VoteCast                 = "VoteCast"
	NoOpenElimination        = "NoOpenElimination"
	ParticipantCreated       = "ParticipantCreated"
	ParticipantNameTaken     = "ParticipantNameTaken"
	ParticipantLimit         = "ParticipantLimit"
	ParticipantDeleted       = "ParticipantDeleted"
	DeleteParticipantFailed  = "DeleteParticipantFailed"
	ParticipantInElimination = "ParticipantInElimination"
	ParticipantNotFound      = "ParticipantNotFound"
	EliminationCreated       = "EliminationCreated"
	EliminationLimit         = "EliminationLimit"
	NotEnoughParticipants    = "NotEnoughParticipants"
	CloseEliminationFailed   = "CloseEliminationFailed"
	EliminationNotFound      = "EliminationNotFound"
	FieldRequired            = "FieldRequired"
	NameRequired             = "NameRequired"
	NameTooShort             = "NameTooShort"
	SurnameRequired          = "SurnameRequired"
	SurnameTooShort          = "SurnameTooShort"
	EmailRequired            = "EmailRequired"
	EmailInvalid             = "EmailInvalid"
	PasswordRequired         = "PasswordRequired"
	PasswordTooShort         = "PasswordTooShort"
	SelectParticipant        = "SelectParticipant"
	ParticipantsEqual        = "ParticipantsEqual"
)

// Message is an unrendered notice: a catalogue id plus template data
type Message struct {
	ID   string
	Kind Kind
	Data map[string]any
}

func (m Message) String() string {
	if len(m.Data) == 0 {
		return m.ID
	}
	return fmt.Sprintf("%s%v", m.ID, m.Data)
}

// Successf, Errorf and Warningf build messages of each kind.
// args are alternating template keys and values.

func Successf(id string, args ...any) Message { return Message{ID: id, Kind: Success, Data: data(args)} }
func Errorf(id string, args ...any) Message   { return Message{ID: id, Kind: Error, Data: data(args)} }
func Warningf(id string, args ...any) Message { return Message{ID: id, Kind: Warning, Data: data(args)} }

func data(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	m := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		m[fmt.Sprint(args[i])] = args[i+1]
	}
	return m
}

// Notice is a rendered message ready for the browser
type Notice struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Catalog holds the loaded translations
type Catalog struct {
	log             logger.Logger
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
}

// NewCatalog loads the embedded translations. defaultLocale is used when
// the browser's languages have no match; an unparsable value falls back to pt-BR.
func NewCatalog(log logger.Logger, defaultLocale string) (*Catalog, error) {
	if log == nil {
		log = logger.Noop{}
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return &Catalog{log: log, bundle: bundle, defaultLanguage: tag}, nil
}

// DefaultLanguage returns the fallback language
func (c *Catalog) DefaultLanguage() string {
	return c.defaultLanguage.String()
}

// Languages returns the languages the catalogue has translations for
func (c *Catalog) Languages() []string {
	tags := c.bundle.LanguageTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Localizer renders messages for one request
type Localizer struct {
	catalog   *Catalog
	localizer *i18n.Localizer
}

// For returns a localizer for the given language preferences, typically
// the raw Accept-Language header value.
func (c *Catalog) For(langs ...string) *Localizer {
	langs = append(langs, c.defaultLanguage.String())
	return &Localizer{catalog: c, localizer: i18n.NewLocalizer(c.bundle, langs...)}
}

// Text renders a single message. Unknown ids render as the id itself.
func (l *Localizer) Text(m Message) string {
	text, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    m.ID,
		TemplateData: m.Data,
	})
	if err != nil {
		l.catalog.log.Warn("notice: localize failed", "id", m.ID, "error", err)
		return m.ID
	}
	return text
}

// Render turns messages into notices with fresh ids
func (l *Localizer) Render(msgs ...Message) []Notice {
	notices := make([]Notice, 0, len(msgs))
	for _, m := range msgs {
		notices = append(notices, Notice{
			ID:      uuid.NewString(),
			Kind:    m.Kind,
			Message: l.Text(m),
		})
	}
	return notices
}
