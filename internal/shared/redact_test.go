package shared

import "testing"

func TestRedactBotToken(t *testing.T) {
	input := "starting bot with bot_token=123456:AAHxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	got := Redact(input)
	if got == input {
		t.Fatalf("expected redaction, got unchanged string %q", got)
	}
}

func TestRedactTelegramTokenShape(t *testing.T) {
	input := "token is 987654321:AAFakeTokenFakeTokenFakeTokenFakeToken"
	got := Redact(input)
	if got == input {
		t.Fatalf("expected telegram-shaped token to be redacted, got %q", got)
	}
}

func TestRedactLeavesPlainTextAlone(t *testing.T) {
	input := "Player Added Successfully"
	if got := Redact(input); got != input {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnvValue(t *testing.T) {
	if got := RedactEnvValue("FIREBASE_PROJECT_ID", "my-project"); got != "my-project" {
		t.Fatalf("expected unredacted, got %q", got)
	}
	if got := RedactEnvValue("JWT_SECRET", "supersecret"); got != "[REDACTED]" {
		t.Fatalf("expected redaction, got %q", got)
	}
}
