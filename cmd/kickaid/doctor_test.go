package main

import (
	"context"
	"testing"
)

func TestRunDoctorCommandMissingEnvFails(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("KICKAI_INVITE_SECRET_KEY", "")
	t.Setenv("KICKAI_HOME", t.TempDir())

	code := runDoctorCommand(context.Background(), []string{"-json"})
	if code != 1 {
		t.Fatalf("expected exit code 1 with missing required config, got %d", code)
	}
}

func TestRunDoctorCommandTextOutputDoesNotPanic(t *testing.T) {
	t.Setenv("KICKAI_HOME", t.TempDir())
	_ = runDoctorCommand(context.Background(), nil)
}
