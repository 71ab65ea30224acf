package validation

import (
	"strings"
	"testing"

	"github.com/abrezinsky/paredao/internal/notice"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name string
		form LoginForm
		want map[string]string
	}{
		{"valid", LoginForm{Email: " ana@example.com ", Password: "1234"}, nil},
		{"missing everything", LoginForm{}, map[string]string{"email": notice.EmailRequired, "password": notice.PasswordRequired}},
		{"bad email", LoginForm{Email: "ana", Password: "1234"}, map[string]string{"email": notice.EmailInvalid}},
		{"short password", LoginForm{Email: "ana@example.com", Password: "123"}, map[string]string{"password": notice.PasswordTooShort}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Login(&tt.form)
			assertFieldErrors(t, got, tt.want)
		})
	}
}

func TestLogin_TrimsEmail(t *testing.T) {
	f := LoginForm{Email: "  ana@example.com\n", Password: "1234"}
	if fe := Login(&f); fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	if f.Email != "ana@example.com" {
		t.Errorf("expected trimmed email, got %q", f.Email)
	}
}

func TestRegister(t *testing.T) {
	f := RegisterForm{Name: "  Ana ", Surname: "Maria  Braga", Email: "ana@example.com", Password: "1234"}
	if fe := Register(&f); fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	if got := f.FullName(); got != "Ana Maria Braga" {
		t.Errorf("expected 'Ana Maria Braga', got %q", got)
	}

	fe := Register(&RegisterForm{Email: "x@y.z", Password: "1234"})
	assertFieldErrors(t, fe, map[string]string{"name": notice.NameRequired, "surname": notice.SurnameRequired})
}

func TestParticipant(t *testing.T) {
	tests := []struct {
		name string
		form ParticipantForm
		want map[string]string
	}{
		{"valid", ParticipantForm{Name: "Ana", Surname: "Braga"}, nil},
		{"short name", ParticipantForm{Name: "Al", Surname: "Braga"}, map[string]string{"name": notice.NameTooShort}},
		{"short surname after trimming", ParticipantForm{Name: "Ana", Surname: "  B  "}, map[string]string{"surname": notice.SurnameTooShort}},
		{"accents count as one character", ParticipantForm{Name: "Zé", Surname: "Ção"}, map[string]string{"name": notice.NameTooShort}},
		{"empty", ParticipantForm{}, map[string]string{"name": notice.NameRequired, "surname": notice.SurnameRequired}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFieldErrors(t, Participant(&tt.form), tt.want)
		})
	}
}

func TestElimination(t *testing.T) {
	tests := []struct {
		name string
		form EliminationForm
		want map[string]string
	}{
		{"valid", EliminationForm{ParticipantA: "p1", ParticipantB: "p2"}, nil},
		{"same participant", EliminationForm{ParticipantA: "p1", ParticipantB: "p1"}, map[string]string{"participant_b": notice.ParticipantsEqual}},
		{"none selected", EliminationForm{}, map[string]string{"participant_a": notice.SelectParticipant, "participant_b": notice.SelectParticipant}},
		{"second missing", EliminationForm{ParticipantA: "p1", ParticipantB: " "}, map[string]string{"participant_b": notice.SelectParticipant}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFieldErrors(t, Elimination(&tt.form), tt.want)
		})
	}
}

func TestVote(t *testing.T) {
	assertFieldErrors(t, Vote(&VoteForm{ParticipantID: "p1"}), nil)
	assertFieldErrors(t, Vote(&VoteForm{}), map[string]string{"participant_id": notice.SelectParticipant})
}

func TestFieldErrors_Error(t *testing.T) {
	fe := FieldErrors{"email": notice.Errorf(notice.EmailInvalid)}
	if !strings.Contains(fe.Error(), "email: EmailInvalid") {
		t.Errorf("unexpected message: %s", fe.Error())
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Ana \t Maria\n"); got != "Ana Maria" {
		t.Errorf("expected 'Ana Maria', got %q", got)
	}
}

func assertFieldErrors(t *testing.T, got FieldErrors, want map[string]string) {
	t.Helper()
	if len(want) == 0 {
		if got != nil {
			t.Errorf("expected no errors, got %v", got)
		}
		return
	}
	if len(got) != len(want) {
		t.Errorf("expected %d field errors, got %v", len(want), got)
	}
	for field, id := range want {
		msg, ok := got[field]
		if !ok {
			t.Errorf("expected error on %s", field)
			continue
		}
		if msg.ID != id {
			t.Errorf("field %s: expected %s, got %s", field, id, msg.ID)
		}
		if msg.Kind != notice.Error {
			t.Errorf("field %s: expected error kind, got %s", field, msg.Kind)
		}
	}
}
