// Package token issues and verifies the short-lived signed capability
// tokens that gate the administrative HTTP surface. A token is minted
// every time an administrator opens the panel from the bot and travels as
// a URL query parameter, so the default lifetime is intentionally short.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid is returned for signature or shape failures.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned when the token is well-formed and correctly
	// signed but past its expiry. Callers surface it differently so the
	// client can prompt for a fresh panel link.
	ErrExpired = errors.New("token expired")
	// ErrUnknownSubject is returned when the token verifies but its
	// subject is not on the primary administrator roster.
	ErrUnknownSubject = errors.New("subject is not an administrator")
)

// Identity is the verified administrator identity embedded in a token.
type Identity struct {
	ID     int64
	Handle string
}

// Label returns the identity's handle, falling back to the numeric id.
// Used for the handledBy field on transitions.
func (id Identity) Label() string {
	if id.Handle != "" {
		return id.Handle
	}
	return strconv.FormatInt(id.ID, 10)
}

// Roster answers whether an id or handle belongs to the fixed
// primary-admin list configured at deployment.
type Roster interface {
	IsPrimaryAdmin(id int64, handle string) bool
}

type Service struct {
	secret []byte
	ttl    time.Duration
	roster Roster
	now    func() time.Time
}

func NewService(secret []byte, ttl time.Duration, roster Roster) *Service {
	return &Service{secret: secret, ttl: ttl, roster: roster, now: time.Now}
}

// NewServiceWithClock returns a Service with an injected clock, for tests.
func NewServiceWithClock(secret []byte, ttl time.Duration, roster Roster, now func() time.Time) *Service {
	return &Service{secret: secret, ttl: ttl, roster: roster, now: now}
}

type claims struct {
	jwt.RegisteredClaims
	Handle string `json:"handle,omitempty"`
}

// Issue encodes the subject identity with expiry now + TTL. It has no
// side effects beyond signing.
func (s *Service) Issue(subjectID int64, handle string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Handle: handle,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// Verify checks signature and expiry, then checks the subject against the
// roster. Expiry failures are reported as ErrExpired, everything else
// about the token itself as ErrInvalid.
func (s *Service) Verify(tokenString string) (*Identity, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalid
	}
	if !s.roster.IsPrimaryAdmin(id, c.Handle) {
		return nil, ErrUnknownSubject
	}
	return &Identity{ID: id, Handle: c.Handle}, nil
}
