package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMakeVerifyToken(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	gen := NewTokenGenerator(resetSalt, "secret", timeout)

	now := time.Now().UTC()
	acc := Account{
		ID:        primitive.NewObjectID(),
		Email:     "t@test.test",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: &now,
	}
	_ = acc.SetPassword("pwd")

	validToken, err := gen.MakeToken(acc)
	assert.NoError(t, err)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	gen.nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := gen.MakeToken(acc)
	gen.nowFunc = time.Now // reset

	// a token for another purpose must not be accepted
	otherGen := NewTokenGenerator(verifySalt, "secret", timeout)
	otherToken, _ := otherGen.MakeToken(acc)

	verified := acc
	verified.IsVerified = true

	tests := []struct {
		name    string
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", acc: acc, wantErr: errInvalidToken},
		{name: "invalid parts len", acc: acc, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", acc: acc, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", acc: acc, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", acc: acc, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "other purpose", acc: acc, token: otherToken, wantErr: errInvalidToken},
		{name: "account state changed", acc: verified, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", acc: acc, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, gen.VerifyToken(tt.acc, tt.token))
		})
	}
}

func TestUIDRoundTrip(t *testing.T) {
	acc := Account{ID: primitive.NewObjectID()}
	id, err := decodeUID(EncodeUID(acc))
	assert.NoError(t, err)
	assert.Equal(t, acc.ID, id)

	_, err = decodeUID("!!")
	assert.Error(t, err)
}
