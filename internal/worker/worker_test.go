package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/eckinger/uchomp/internal/repository"
	"github.com/eckinger/uchomp/pkg/events"
)

type stubGroupRepo struct {
	expiring []domain.ExpiringGroup
	err      error
}

func (r *stubGroupRepo) InTx(_ context.Context, _ func(tx repository.GroupTx) error) error {
	return errors.New("not used")
}

func (r *stubGroupRepo) ListActive(_ context.Context, _ time.Time) ([]domain.GroupSummary, error) {
	return nil, errors.New("not used")
}

func (r *stubGroupRepo) GetDetail(_ context.Context, _ int64) (*domain.GroupDetail, error) {
	return nil, errors.New("not used")
}

func (r *stubGroupRepo) ListExpiring(_ context.Context, _, _ time.Time) ([]domain.ExpiringGroup, error) {
	return r.expiring, r.err
}

type stubPublisher struct {
	subjects []string
	payloads []interface{}
	err      error
}

func (p *stubPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

type recordingMailer struct {
	joins       []string
	leaves      []string
	expirations []string
	err         error
}

func (m *recordingMailer) SendVerificationCode(_, _ string) error { return m.err }

func (m *recordingMailer) SendJoinNotification(email, _ string) error {
	m.joins = append(m.joins, email)
	return m.err
}

func (m *recordingMailer) SendLeaveNotification(email, _ string) error {
	m.leaves = append(m.leaves, email)
	return m.err
}

func (m *recordingMailer) SendExpirationNotification(email, _ string, _ time.Time) error {
	m.expirations = append(m.expirations, email)
	return m.err
}

func TestSweepPublishesOncePerGroup(t *testing.T) {
	repo := &stubGroupRepo{
		expiring: []domain.ExpiringGroup{
			{ID: 1, Restaurant: "Pizza", MemberEmails: []string{"a@uchicago.edu"}},
			{ID: 2, Restaurant: "Thai", MemberEmails: []string{"b@uchicago.edu"}},
		},
	}
	pub := &stubPublisher{}
	w := NewExpiryWatcher(repo, pub, 15*time.Minute, time.Minute)

	w.sweep(context.Background())
	w.sweep(context.Background())

	if len(pub.subjects) != 2 {
		t.Fatalf("expected 2 events across sweeps, got %d", len(pub.subjects))
	}
	for _, s := range pub.subjects {
		if s != events.GroupExpiring {
			t.Errorf("unexpected subject %q", s)
		}
	}
}

func TestSweepRetriesAfterPublishFailure(t *testing.T) {
	repo := &stubGroupRepo{
		expiring: []domain.ExpiringGroup{{ID: 1, Restaurant: "Pizza"}},
	}
	pub := &stubPublisher{err: errors.New("nats down")}
	w := NewExpiryWatcher(repo, pub, 15*time.Minute, time.Minute)

	w.sweep(context.Background())
	if len(pub.subjects) != 0 {
		t.Fatal("publish should have failed")
	}

	// The group was not marked notified, so the next sweep tries again.
	pub.err = nil
	w.sweep(context.Background())
	if len(pub.subjects) != 1 {
		t.Fatalf("expected 1 event after recovery, got %d", len(pub.subjects))
	}
}

func TestSweepSurvivesRepoError(t *testing.T) {
	repo := &stubGroupRepo{err: errors.New("db down")}
	pub := &stubPublisher{}
	w := NewExpiryWatcher(repo, pub, 15*time.Minute, time.Minute)

	w.sweep(context.Background())
	if len(pub.subjects) != 0 {
		t.Error("no events expected when the scan fails")
	}
}

func TestHandleMemberEvent(t *testing.T) {
	m := &recordingMailer{}
	n := NewNotifier(nil, m)

	payload, _ := json.Marshal(events.GroupMemberEvent{
		OrderID:    1,
		Restaurant: "Pizza",
		UserEmail:  "a@uchicago.edu",
	})

	n.handleMemberEvent(&events.Message{Subject: events.GroupMemberJoined, Data: payload})
	n.handleMemberEvent(&events.Message{Subject: events.GroupMemberLeft, Data: payload})

	if len(m.joins) != 1 || m.joins[0] != "a@uchicago.edu" {
		t.Errorf("joins = %v", m.joins)
	}
	if len(m.leaves) != 1 || m.leaves[0] != "a@uchicago.edu" {
		t.Errorf("leaves = %v", m.leaves)
	}
}

func TestHandleMemberEventBadPayload(t *testing.T) {
	m := &recordingMailer{}
	n := NewNotifier(nil, m)

	n.handleMemberEvent(&events.Message{Subject: events.GroupMemberJoined, Data: []byte("{broken")})

	if len(m.joins) != 0 {
		t.Error("no mail expected for an undecodable event")
	}
}

func TestHandleExpiringMailsEveryMember(t *testing.T) {
	m := &recordingMailer{}
	n := NewNotifier(nil, m)

	payload, _ := json.Marshal(events.GroupExpiringEvent{
		OrderID:      1,
		Restaurant:   "Pizza",
		Expiration:   time.Now().Add(10 * time.Minute),
		MemberEmails: []string{"a@uchicago.edu", "b@uchicago.edu", "c@uchicago.edu"},
	})
	n.handleExpiring(&events.Message{Subject: events.GroupExpiring, Data: payload})

	if len(m.expirations) != 3 {
		t.Fatalf("expected 3 expiration mails, got %d", len(m.expirations))
	}
}
