package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store/memstore"
)

type recordingSender struct {
	chatID int64
	text   string
}

func (r *recordingSender) SendText(ctx context.Context, chatID int64, text string) error {
	r.chatID = chatID
	r.text = text
	return nil
}

func TestSendAnnouncementFormatsTitleAndBody(t *testing.T) {
	sender := &recordingSender{}
	svc := NewStoreCommunicationService(memstore.New(), sender)

	if err := svc.SendAnnouncement(context.Background(), 123, "Match Day", "Kickoff at 3pm"); err != nil {
		t.Fatalf("SendAnnouncement() error = %v", err)
	}
	if sender.chatID != 123 {
		t.Fatalf("expected chatID 123, got %d", sender.chatID)
	}
}

func TestGetInviteLinkThenRedeem(t *testing.T) {
	s := memstore.New()
	svc := NewStoreCommunicationService(s, &recordingSender{})
	ctx := context.Background()

	link, err := svc.GetInviteLink(ctx, "KTI", "player123", "", time.Hour)
	if err != nil {
		t.Fatalf("GetInviteLink() error = %v", err)
	}
	if len(link.SecureToken) < 32 {
		t.Fatalf("expected secure token >= 32 chars, got %d", len(link.SecureToken))
	}

	redeemed, err := svc.RedeemInviteLink(ctx, "KTI", link.SecureToken, 555)
	if err != nil {
		t.Fatalf("RedeemInviteLink() error = %v", err)
	}
	if redeemed.Status != InviteUsed {
		t.Fatalf("expected used status, got %v", redeemed.Status)
	}

	_, err = svc.RedeemInviteLink(ctx, "KTI", link.SecureToken, 999)
	if !errors.Is(err, kerrors.ErrValidation) {
		t.Fatalf("expected ErrValidation on replay of used token, got %v", err)
	}
}

func TestRedeemInviteLinkExpired(t *testing.T) {
	s := memstore.New()
	svc := NewStoreCommunicationService(s, &recordingSender{})
	ctx := context.Background()

	link, _ := svc.GetInviteLink(ctx, "KTI", "player123", "", -time.Hour)
	_, err := svc.RedeemInviteLink(ctx, "KTI", link.SecureToken, 555)
	if !errors.Is(err, kerrors.ErrValidation) {
		t.Fatalf("expected ErrValidation on expired token, got %v", err)
	}
}

func TestSendMessageWithNoSenderIsServiceNotFound(t *testing.T) {
	svc := NewStoreCommunicationService(memstore.New(), nil)
	err := svc.SendMessage(context.Background(), 1, "hi")
	if !errors.Is(err, kerrors.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}
