package auth

import (
	"context"
	"errors"
	"time"

	"github.com/cityflow/crm/internal/cache"
	"github.com/cityflow/crm/internal/domain"
)

// ErrSessionNotFound is returned for unknown, expired or signed-out sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps login sessions keyed by session id.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByProfile ends every live session of a profile.
	DeleteByProfile(ctx context.Context, profileID string) error
}

type cacheSessionStore struct {
	store cache.Store
	now   func() time.Time
}

// NewSessionStore keeps sessions in store, expiring them at their ExpiresAt.
func NewSessionStore(store cache.Store) SessionStore {
	return &cacheSessionStore{store: store, now: time.Now}
}

func sessionKey(id string) string { return "session:" + id }

func profileSessionsKey(profileID string) string { return "profile-sessions:" + profileID }

// Save stores session and records its id on the profile's session index. The index lives as
// long as the newest session, and ids of sessions that have since expired are pruned.
func (s *cacheSessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	if err := s.store.SetJSON(ctx, sessionKey(session.ID), session, ttl); err != nil {
		return err
	}
	if session.ProfileID == "" {
		return nil
	}

	ids, err := s.profileSessions(ctx, session.ProfileID)
	if err != nil {
		return err
	}
	live := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == session.ID {
			continue
		}
		if _, err := s.Get(ctx, id); err == nil {
			live = append(live, id)
		}
	}
	live = append(live, session.ID)
	return s.store.SetJSON(ctx, profileSessionsKey(session.ProfileID), live, ttl)
}

func (s *cacheSessionStore) profileSessions(ctx context.Context, profileID string) ([]string, error) {
	var ids []string
	if _, err := s.store.GetJSON(ctx, profileSessionsKey(profileID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *cacheSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	hit, err := s.store.GetJSON(ctx, sessionKey(id), &session)
	if err != nil {
		return nil, err
	}
	if !hit || !session.ExpiresAt.After(s.now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *cacheSessionStore) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, sessionKey(id))
}

func (s *cacheSessionStore) DeleteByProfile(ctx context.Context, profileID string) error {
	ids, err := s.profileSessions(ctx, profileID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, profileSessionsKey(profileID))
	return s.store.Delete(ctx, keys...)
}
