// Package identity implements nonce-challenge/signature authentication
// and short-lived session tokens, generalized from the teacher
// identity service's challenge-and-JWT flow to HyprCAT's DID-based
// agents.
package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

const (
	challengeTTL = 5 * time.Minute
	tokenTTL     = time.Hour

	// simPrefix marks a simulation-mode placeholder signature, accepted
	// only when Service is constructed with allowSimulated=true.
	simPrefix = "sim:"
)

// Challenge is a pending nonce awaiting signature verification.
type Challenge struct {
	Nonce     string
	Domain    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity records the public key material bound to a DID on its first
// successful verification.
type Identity struct {
	DID       string
	PublicKey []byte
}

// Claims is the payload carried in an issued session token.
type Claims struct {
	DID   string `json:"did"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Service issues auth challenges and session tokens. All state is
// in-process; nonces and identities never need to survive a restart.
type Service struct {
	secret         []byte
	allowSimulated bool

	mu         sync.Mutex
	challenges map[string]Challenge
	identities map[string]Identity

	done chan struct{}
}

// New returns a Service that signs tokens with secret and, when
// allowSimulated is true, accepts sim:-prefixed placeholder signatures
// in VerifyChallenge. Production deployments must pass false.
func New(secret []byte, allowSimulated bool) *Service {
	svc := &Service{
		secret:         secret,
		allowSimulated: allowSimulated,
		challenges:     make(map[string]Challenge),
		identities:     make(map[string]Identity),
		done:           make(chan struct{}),
	}
	go svc.sweepLoop()
	return svc
}

// Close stops the background expiry sweep.
func (s *Service) Close() { close(s.done) }

func (s *Service) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepExpired(time.Now())
		}
	}
}

func (s *Service) sweepExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, ch := range s.challenges {
		if now.After(ch.ExpiresAt) {
			delete(s.challenges, nonce)
		}
	}
}

// IssueChallenge generates a random nonce for domain and records it as
// pending with a five-minute expiry.
func (s *Service) IssueChallenge(domain string) (Challenge, error) {
	raw := make([]byte, 32) // 256 bits
	if _, err := rand.Read(raw); err != nil {
		return Challenge{}, apierr.Wrap(apierr.InternalError, "Challenge issuance failed", "generate nonce", err)
	}
	now := time.Now()
	challenge := Challenge{
		Nonce:     base58.Encode(raw),
		Domain:    domain,
		IssuedAt:  now,
		ExpiresAt: now.Add(challengeTTL),
	}

	s.mu.Lock()
	s.challenges[challenge.Nonce] = challenge
	s.mu.Unlock()

	return challenge, nil
}

// VerifyChallenge looks up the pending challenge for nonce and checks
// signature against it. publicKey is the DID's declared ed25519 public
// key; it is recorded on the DID's first successful verification and
// must match on every subsequent verification of a real signature (a
// sim: signature is accepted without that comparison). On success the nonce is deleted,
// so a verified challenge can never be replayed.
func (s *Service) VerifyChallenge(ctx context.Context, did, signature, nonce string, publicKey []byte) error {
	s.mu.Lock()
	challenge, ok := s.challenges[nonce]
	if ok {
		delete(s.challenges, nonce) // single-use regardless of outcome
	}
	s.mu.Unlock()

	if !ok {
		return apierr.New(apierr.AuthenticationFailed, "Unknown challenge", "nonce not found or already used")
	}
	if time.Now().After(challenge.ExpiresAt) {
		return apierr.New(apierr.AuthenticationFailed, "Expired challenge", "nonce expired")
	}

	if strings.HasPrefix(signature, simPrefix) {
		if !s.allowSimulated {
			return apierr.New(apierr.AuthenticationFailed, "Simulated signatures disabled", "simulation-mode signatures are not accepted in this environment")
		}
		s.rememberIdentity(did, publicKey)
		return nil
	}

	if len(publicKey) != ed25519.PublicKeySize {
		return apierr.New(apierr.AuthenticationFailed, "Invalid public key", "public key is not a valid ed25519 key")
	}
	if existing, known := s.knownIdentity(did); known && !bytesEqual(existing.PublicKey, publicKey) {
		return apierr.New(apierr.AuthenticationFailed, "Public key mismatch", "declared public key does not match the key on record for this DID")
	}

	sigBytes, err := base58.Decode(signature)
	if err != nil {
		return apierr.New(apierr.AuthenticationFailed, "Malformed signature", "signature is not valid base58")
	}
	message := []byte(fmt.Sprintf("%s:%s:%s", did, nonce, challenge.Domain))
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, sigBytes) {
		return apierr.New(apierr.AuthenticationFailed, "Signature verification failed", "signature does not match the declared public key")
	}

	s.rememberIdentity(did, publicKey)
	return nil
}

func (s *Service) rememberIdentity(did string, publicKey []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[did]; !ok {
		s.identities[did] = Identity{DID: did, PublicKey: publicKey}
	}
}

func (s *Service) knownIdentity(did string) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.identities[did]
	return id, ok
}

// IdentityOf reports the public key material on file for did, if any.
func (s *Service) IdentityOf(did string) (Identity, bool) {
	return s.knownIdentity(did)
}

// IssueToken returns a self-verifying JWT carrying {did, scope, iat,
// exp}, HMAC-signed with the service's process-scoped secret.
func (s *Service) IssueToken(did, scope string) (string, error) {
	now := time.Now()
	claims := Claims{
		DID:   did,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apierr.Wrap(apierr.InternalError, "Token issuance failed", "sign token", err)
	}
	return signed, nil
}

// VerifyToken recomputes the token's signature in constant time and
// enforces expiry, returning the DID and scope it carries.
func (s *Service) VerifyToken(raw string) (did, scope string, err error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", apierr.New(apierr.AuthenticationFailed, "Invalid session token", err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", "", apierr.New(apierr.AuthenticationFailed, "Invalid session token", "claims could not be parsed")
	}
	return claims.DID, claims.Scope, nil
}

func bytesEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

// EncodePublicKey renders a raw ed25519 public key as the base64 form
// callers submit alongside a signature.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}
