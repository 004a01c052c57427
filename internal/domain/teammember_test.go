package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store/memstore"
)

func TestRegisterTeamMemberThenPromote(t *testing.T) {
	s := memstore.New()
	svc := NewStoreTeamMemberService(s)
	ctx := context.Background()

	m, err := svc.RegisterTeamMember(ctx, "KTI", 42, "+1", "Coach Carter", RoleCoach)
	if err != nil {
		t.Fatalf("RegisterTeamMember() error = %v", err)
	}
	if m.IsAdmin {
		t.Fatal("expected new member to not be admin")
	}

	promoted, err := svc.PromoteToAdmin(ctx, "KTI", m.ID)
	if err != nil {
		t.Fatalf("PromoteToAdmin() error = %v", err)
	}
	if !promoted.IsAdmin || promoted.Role != RoleAdmin {
		t.Fatalf("expected admin role after promotion, got %+v", promoted)
	}
}

func TestRegisterTeamMemberDuplicatePhoneIsConstraintViolation(t *testing.T) {
	s := memstore.New()
	svc := NewStoreTeamMemberService(s)
	ctx := context.Background()

	svc.RegisterTeamMember(ctx, "KTI", 1, "+1", "A", RoleCoach)
	_, err := svc.RegisterTeamMember(ctx, "KTI", 2, "+1", "B", RoleManager)
	if !errors.Is(err, kerrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}
