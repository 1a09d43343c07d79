package api

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func testToken(payload string) string {
	encode := base64.RawURLEncoding.EncodeToString
	return encode([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." +
		encode([]byte(payload)) + "." +
		encode([]byte("signature-checked-upstream"))
}

func TestDecodeIdentityValidToken(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	token := testToken(fmt.Sprintf(`{"email":"founder@example.com","exp":%d}`, now.Add(time.Hour).Unix()))

	id := DecodeIdentity(token, now)
	if id == nil {
		t.Fatalf("expected a decoded identity")
	}
	if id.Email != "founder@example.com" {
		t.Errorf("expected email to carry through, got %q", id.Email)
	}
}

func TestDecodeIdentityExpiredToken(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	token := testToken(fmt.Sprintf(`{"email":"founder@example.com","exp":%d}`, now.Add(-time.Minute).Unix()))

	if id := DecodeIdentity(token, now); id != nil {
		t.Errorf("expired token should decode to nil, got %+v", id)
	}
}

func TestDecodeIdentityExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	token := testToken(fmt.Sprintf(`{"email":"founder@example.com","exp":%d}`, now.Unix()))

	// exp equal to now counts as expired.
	if id := DecodeIdentity(token, now); id != nil {
		t.Errorf("token expiring exactly now should decode to nil, got %+v", id)
	}
}

func TestDecodeIdentityMissingEmail(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	token := testToken(fmt.Sprintf(`{"exp":%d}`, now.Add(time.Hour).Unix()))

	if id := DecodeIdentity(token, now); id != nil {
		t.Errorf("token without email should decode to nil, got %+v", id)
	}
}

func TestDecodeIdentityMalformedTokens(t *testing.T) {
	now := time.Now()
	for _, token := range []string{
		"",
		"only-one-part",
		"two.parts",
		"a.b.c.d",
		"header.!!!not-base64!!!.sig",
		testToken(`not json at all`),
	} {
		if id := DecodeIdentity(token, now); id != nil {
			t.Errorf("malformed token %q should decode to nil, got %+v", token, id)
		}
	}
}
