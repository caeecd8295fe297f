package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/token"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testIssuer = "sponsor-gate-test"
	testNonce  = "00112233445566778899aabbccddeeff"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testClock is a settable clock shared by the codec under test.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, secret string) (*token.Codec, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	signer, err := token.NewHMACSigner(secret)
	require.NoError(t, err)
	codec, err := token.NewCodec(signer, token.WithNowTime(clock.Now))
	require.NoError(t, err)
	return codec, clock
}

func sessionClaims() *token.SessionClaims {
	return &token.SessionClaims{
		Sponsor:      true,
		CreatorID:    "alice",
		VisitorLogin: "bob",
		VisitorName:  "Bob Builder",
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec, clock := newTestCodec(t, testSecret)

	t.Run("session claims", func(t *testing.T) {
		issued := sessionClaims()
		raw, err := codec.Issue(issued, time.Hour, testIssuer, token.AudienceSession)
		require.NoError(t, err)
		require.Equal(t, 2, strings.Count(raw, "."))

		var got token.SessionClaims
		require.NoError(t, codec.Verify(raw, testIssuer, token.AudienceSession, &got))
		require.True(t, got.Sponsor)
		require.Equal(t, issued.CreatorID, got.CreatorID)
		require.Equal(t, issued.VisitorLogin, got.VisitorLogin)
		require.Equal(t, issued.VisitorName, got.VisitorName)
		require.False(t, got.IsOwner)
		require.Equal(t, testIssuer, got.Issuer)
		require.Equal(t, issued.ID, got.ID)
		require.NotEmpty(t, got.ID)
		require.True(t, clock.now.Add(time.Hour).Equal(got.ExpiresAt.Time))
		require.True(t, issued.ExpiresAt.Time.Equal(got.ExpiresAt.Time))
	})

	t.Run("state claims", func(t *testing.T) {
		returnURL := "https://blog.example.com/post"
		clientState := "opaque"
		issued := &token.StateClaims{
			CreatorID:   "alice",
			ReturnURL:   &returnURL,
			ClientState: &clientState,
			Nonce:       testNonce,
		}
		raw, err := codec.Issue(issued, 10*time.Minute, testIssuer, token.AudienceOAuthFlow)
		require.NoError(t, err)

		var got token.StateClaims
		require.NoError(t, codec.Verify(raw, testIssuer, token.AudienceOAuthFlow, &got))
		require.Equal(t, "alice", got.CreatorID)
		require.Equal(t, testNonce, got.Nonce)
		require.NotNil(t, got.ReturnURL)
		require.Equal(t, returnURL, *got.ReturnURL)
		require.NotNil(t, got.ClientState)
		require.Equal(t, clientState, *got.ClientState)
		require.Equal(t, []string{token.AudienceOAuthFlow}, []string(got.Audience))
	})
}

func TestCodec_Expiry(t *testing.T) {
	codec, clock := newTestCodec(t, testSecret)
	issuedAt := clock.now
	raw, err := codec.Issue(sessionClaims(), time.Hour, testIssuer, token.AudienceSession)
	require.NoError(t, err)

	t.Run("just before expiry", func(t *testing.T) {
		clock.now = issuedAt.Add(time.Hour - time.Second)
		require.NoError(t, codec.Verify(raw, testIssuer, token.AudienceSession, &token.SessionClaims{}))
	})

	t.Run("exactly at expiry is expired", func(t *testing.T) {
		clock.now = issuedAt.Add(time.Hour)
		err := codec.Verify(raw, testIssuer, token.AudienceSession, &token.SessionClaims{})
		require.ErrorIs(t, err, token.ErrExpired)
		require.Equal(t, "token_expired", apperrors.CodeOf(err))
		require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	})

	t.Run("after expiry", func(t *testing.T) {
		clock.now = issuedAt.Add(2 * time.Hour)
		err := codec.Verify(raw, testIssuer, token.AudienceSession, &token.SessionClaims{})
		require.ErrorIs(t, err, token.ErrExpired)
	})
}

func TestCodec_AudiencesAreNotInterchangeable(t *testing.T) {
	codec, _ := newTestCodec(t, testSecret)

	stateRaw, err := codec.Issue(&token.StateClaims{CreatorID: "alice", Nonce: testNonce}, 10*time.Minute, testIssuer, token.AudienceOAuthFlow)
	require.NoError(t, err)
	sessionRaw, err := codec.Issue(sessionClaims(), time.Hour, testIssuer, token.AudienceSession)
	require.NoError(t, err)

	err = codec.Verify(stateRaw, testIssuer, token.AudienceSession, &token.SessionClaims{})
	require.ErrorIs(t, err, token.ErrAudienceMismatch)
	require.Equal(t, "wrong_audience", apperrors.CodeOf(err))

	err = codec.Verify(sessionRaw, testIssuer, token.AudienceOAuthFlow, &token.StateClaims{})
	require.ErrorIs(t, err, token.ErrAudienceMismatch)
}

func TestCodec_IssuerMismatch(t *testing.T) {
	codec, _ := newTestCodec(t, testSecret)
	raw, err := codec.Issue(sessionClaims(), time.Hour, "someone-else", token.AudienceSession)
	require.NoError(t, err)

	err = codec.Verify(raw, testIssuer, token.AudienceSession, &token.SessionClaims{})
	require.ErrorIs(t, err, token.ErrAudienceMismatch)
}

func TestCodec_Malformed(t *testing.T) {
	codec, _ := newTestCodec(t, testSecret)
	otherCodec, _ := newTestCodec(t, "a-completely-different-secret-value")

	forged, err := otherCodec.Issue(sessionClaims(), time.Hour, testIssuer, token.AudienceSession)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sponsor": true, "creator": "alice", "login": "bob",
		"iss": testIssuer, "aud": token.AudienceSession,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, err := codec.Issue(sessionClaims(), time.Hour, testIssuer, token.AudienceSession)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "garbage", raw: "not-a-token"},
		{name: "wrong secret", raw: forged},
		{name: "alg none", raw: unsigned},
		{name: "tampered payload", raw: tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := codec.Verify(tt.raw, testIssuer, token.AudienceSession, &token.SessionClaims{})
			require.ErrorIs(t, err, token.ErrMalformed)
			require.Equal(t, "token_malformed", apperrors.CodeOf(err))
		})
	}
}

func TestCodec_IssueRejectsInvalidInput(t *testing.T) {
	codec, _ := newTestCodec(t, testSecret)

	_, err := codec.Issue(sessionClaims(), 0, testIssuer, token.AudienceSession)
	require.Error(t, err)

	_, err = codec.Issue(sessionClaims(), time.Hour, "", token.AudienceSession)
	require.Error(t, err)

	_, err = codec.Issue(&token.SessionClaims{CreatorID: "alice", VisitorLogin: "bob"}, time.Hour, testIssuer, token.AudienceSession)
	require.Error(t, err, "non-sponsor sessions are never signed")

	_, err = codec.Issue(&token.StateClaims{CreatorID: "alice", Nonce: "abc"}, time.Minute, testIssuer, token.AudienceOAuthFlow)
	require.Error(t, err, "short nonces are rejected")
}

func TestNewHMACSigner_RequiresSecret(t *testing.T) {
	_, err := token.NewHMACSigner("")
	require.Error(t, err)
}
