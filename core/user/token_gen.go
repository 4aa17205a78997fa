package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	resetSalt  = []byte("campus.core.user.password_reset")
	verifySalt = []byte("campus.core.user.email_verification")

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// TokenGenerator makes one-time tokens bound to the state of an Account: a token stops
// being valid as soon as the password, the last login or the verification flag changes.
type TokenGenerator struct {
	salt    []byte
	secret  string
	timeout time.Duration
	nowFunc func() time.Time // mockable
}

func NewTokenGenerator(salt []byte, secret string, timeout time.Duration) *TokenGenerator {
	return &TokenGenerator{salt: salt, secret: secret, timeout: timeout, nowFunc: time.Now}
}

// EncodeUID base64 encodes given Account ID
func EncodeUID(acc Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acc.ID.Hex()))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (primitive.ObjectID, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(string(idBytes))
}

// MakeToken generates a token for a given Account.
func (g *TokenGenerator) MakeToken(acc Account) (string, error) {
	return g.makeTokenWithTimestamp(acc, numDaysSince2001(g.nowFunc()))
}

// VerifyToken checks that a token for a given Account is valid.
func (g *TokenGenerator) VerifyToken(acc Account, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}
	tsB32 := parts[0]

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(tsB32)
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := g.makeTokenWithTimestamp(acc, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(g.nowFunc()) - ts) > int(g.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g *TokenGenerator) makeTokenWithTimestamp(acc Account, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := g.sign(hashValue(acc, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func (g *TokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte(nil), g.salt...), g.secret...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// hashValue only uses values that survive a round trip through the store (unix seconds, not time.String).
func hashValue(acc Account, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(acc.ID.Hex())
	val.Write(acc.PasswordHash)
	if acc.LastLogin != nil {
		val.WriteString(strconv.FormatInt(acc.LastLogin.Unix(), 10))
	}
	val.WriteString(strconv.FormatBool(acc.IsVerified))
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
