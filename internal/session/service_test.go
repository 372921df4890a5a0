package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"caritas/internal/presentation"
)

type ServiceSuite struct {
	suite.Suite
	svc *Service
	now time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(5*time.Minute, WithClock(func() time.Time { return s.now }))
	require.NoError(s.T(), err)
	s.svc = svc
}

func (s *ServiceSuite) create() Session {
	vp := presentation.New("did:caritas:user:0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", nil, "nonce-1", "caritas.example.org")
	sess, err := s.svc.Create(context.Background(), vp, "nonce-1")
	require.NoError(s.T(), err)
	return sess
}

func (s *ServiceSuite) TestCreatePending() {
	sess := s.create()

	assert.NotEmpty(s.T(), sess.ID)
	assert.Equal(s.T(), StatusPending, sess.Status)
	assert.False(s.T(), sess.Used)
	assert.Equal(s.T(), s.now.Add(5*time.Minute), sess.ExpiresAt)

	got, err := s.svc.GetStatus(context.Background(), sess.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusPending, got.Status)
}

func (s *ServiceSuite) TestUpdateStatusVerified() {
	sess := s.create()

	err := s.svc.UpdateStatus(context.Background(), sess.ID, StatusVerified, map[string]any{"gate": "A"})
	require.NoError(s.T(), err)

	got, err := s.svc.GetStatus(context.Background(), sess.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusVerified, got.Status)
	require.NotNil(s.T(), got.VerifiedAt)
	assert.Equal(s.T(), s.now, *got.VerifiedAt)
	assert.Equal(s.T(), "A", got.CheckinData["gate"])

	// A resolved session cannot be resolved again.
	assert.Error(s.T(), s.svc.UpdateStatus(context.Background(), sess.ID, StatusFailed, nil))
}

func (s *ServiceSuite) TestUpdateStatusValidation() {
	sess := s.create()
	assert.Error(s.T(), s.svc.UpdateStatus(context.Background(), sess.ID, StatusExpired, nil))
	assert.ErrorIs(s.T(), s.svc.UpdateStatus(context.Background(), "missing", StatusVerified, nil), ErrInvalidSession)
}

func (s *ServiceSuite) TestLazyExpiryOnPoll() {
	sess := s.create()
	s.now = s.now.Add(6 * time.Minute)

	got, err := s.svc.GetStatus(context.Background(), sess.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusExpired, got.Status)

	// Not deleted: a second poll still observes the terminal state.
	got, err = s.svc.GetStatus(context.Background(), sess.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusExpired, got.Status)
}

func (s *ServiceSuite) TestVerifyAndMarkUsedOnce() {
	sess := s.create()
	require.NoError(s.T(), s.svc.UpdateStatus(context.Background(), sess.ID, StatusVerified, nil))

	got, err := s.svc.VerifyAndMarkUsed(context.Background(), sess.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), got.Used)
	assert.Equal(s.T(), StatusVerified, got.Status)

	// Consumed once; the record survives for the polling grace window.
	_, err = s.svc.VerifyAndMarkUsed(context.Background(), sess.ID)
	assert.ErrorIs(s.T(), err, ErrSessionUsed)
	polled, err := s.svc.GetStatus(context.Background(), sess.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), polled.Used)
}

func (s *ServiceSuite) TestVerifyAndMarkUsedExpiredDeletes() {
	sess := s.create()
	s.now = s.now.Add(10 * time.Minute)

	_, err := s.svc.VerifyAndMarkUsed(context.Background(), sess.ID)
	assert.ErrorIs(s.T(), err, ErrSessionExpired)

	_, err = s.svc.GetStatus(context.Background(), sess.ID)
	assert.ErrorIs(s.T(), err, ErrInvalidSession)
}

func (s *ServiceSuite) TestVerifyAndMarkUsedUnknown() {
	_, err := s.svc.VerifyAndMarkUsed(context.Background(), "missing")
	assert.ErrorIs(s.T(), err, ErrInvalidSession)
}

func (s *ServiceSuite) TestSweepDeletions() {
	expired := s.create()
	verified := s.create()
	pending := s.create()

	require.NoError(s.T(), s.svc.UpdateStatus(context.Background(), verified.ID, StatusVerified, nil))

	s.now = s.now.Add(time.Minute)
	deleted, err := s.svc.DeleteVerifiedBefore(context.Background(), s.now.Add(-30*time.Second))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, deleted)

	s.now = s.now.Add(10 * time.Minute)
	deleted, err = s.svc.DeleteExpiredSessions(context.Background(), s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, deleted)

	for _, id := range []string{expired.ID, verified.ID, pending.ID} {
		_, err := s.svc.GetStatus(context.Background(), id)
		assert.ErrorIs(s.T(), err, ErrInvalidSession)
	}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(0)
	assert.Error(t, err)
}
