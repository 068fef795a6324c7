package shared

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "meridian:session:"

// Session is the per-request view of a server-side session. Mutations are
// buffered in memory until the manager commits them back to redis.
type Session struct {
	ID string

	userID    string
	values    map[string]string
	fresh     bool
	dirty     bool
	destroyed bool
}

// Set stores a string value under key.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get returns the value stored under key, or "" when absent.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes key from the session.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser binds the session to an authenticated user.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the bound user ID, or "" for an anonymous session.
func (s *Session) User() string {
	return s.userID
}

type sessionRecord struct {
	UserID   string            `json:"uid"`
	Values   map[string]string `json:"vals"`
	IssuedAt time.Time         `json:"iat"`
}

// SessionManager loads and persists cookie sessions stored in redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
}

// NewSessionManager constructs a SessionManager. secret hardens the
// fallback session ID path when the random source misbehaves.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		secret:     []byte(secret),
		ttl:        ttl,
		secure:     secure,
	}
}

// Load resolves the request's session. A missing or unknown cookie yields a
// fresh anonymous session rather than an error.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.fresh(), nil
		}
		return nil, err
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+cookie.Value).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Stale cookie; reuse its ID so the client keeps one cookie.
			sess := sm.fresh()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &Session{
		ID:     cookie.Value,
		userID: record.UserID,
		values: record.Values,
	}, nil
}

// Commit writes pending session state to redis and emits the cookie. Must
// run before the response body is started.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	if sess.ID == "" {
		sess.ID = sm.newSessionID()
	}

	if sess.dirty || sess.fresh {
		raw, err := json.Marshal(sessionRecord{
			UserID:   sess.userID,
			Values:   sess.values,
			IssuedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sessionKeyPrefix+sess.ID, raw, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.fresh = false
	}

	http.SetCookie(w, sm.cookie(sess.ID, 0))
	return nil
}

// Destroy marks the session for removal on the next Commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL reports the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName reports the session cookie name.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) fresh() *Session {
	return &Session{
		ID:     sm.newSessionID(),
		values: make(map[string]string),
		fresh:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge == 0 {
		c.Expires = time.Now().Add(sm.ttl)
	}
	return c
}

func (sm *SessionManager) newSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		sum := sha256.Sum256(append(sm.secret, []byte(time.Now().Format(time.RFC3339Nano))...))
		return base64.RawURLEncoding.EncodeToString(sum[:])
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
