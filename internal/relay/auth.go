package relay

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tankarena/internal/store"
)

const (
	tokenExpiry     = 24 * time.Hour
	maxNickLen      = 16
	tokenRateWindow = 60 * time.Second
	maxTokenReqs    = 20
)

// BcryptCost is the work factor for room passphrases
var BcryptCost = 12

var (
	ErrInvalidNickname = errors.New("nickname must be 1-16 characters")
	ErrRateLimited     = errors.New("too many requests, try again later")
	ErrInvalidToken    = errors.New("invalid token")
)

// Auth issues and checks the session tokens that gate the websocket, and
// hashes room passphrases.
type Auth struct {
	secret []byte

	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates an Auth whose signing secret survives restarts when db
// is non-nil.
func NewAuth(db *store.DB) *Auth {
	return &Auth{
		secret:  loadOrCreateSecret(db),
		rateMap: make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *store.DB) []byte {
	if db != nil {
		h, err := db.GetSetting(store.KeyJWTSecret)
		if err != nil {
			log.WithError(err).Warn("could not read jwt secret")
		}
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting(store.KeyJWTSecret, hex.EncodeToString(secret)); err != nil {
			log.WithError(err).Warn("could not persist jwt secret")
		}
	}
	return secret
}

// CleanNickname trims and validates a player name
func CleanNickname(nick string) (string, error) {
	nick = strings.TrimSpace(nick)
	if nick == "" || len(nick) > maxNickLen {
		return "", ErrInvalidNickname
	}
	return nick, nil
}

// IssueToken signs a token carrying the nickname. ip is rate limited.
func (a *Auth) IssueToken(nick, ip string) (string, error) {
	if !a.checkRate(ip) {
		return "", ErrRateLimited
	}
	nick, err := CleanNickname(nick)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"nick": nick,
		"exp":  now.Add(tokenExpiry).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken returns the nickname carried by a token
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	nick, ok := claims["nick"].(string)
	if !ok || nick == "" {
		return "", ErrInvalidToken
	}
	return nick, nil
}

// HashPassphrase hashes a room passphrase
func (a *Auth) HashPassphrase(pass string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pass), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash passphrase: %w", err)
	}
	return h, nil
}

// CheckPassphrase reports whether pass matches hash
func (a *Auth) CheckPassphrase(hash []byte, pass string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(tokenRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxTokenReqs
}
