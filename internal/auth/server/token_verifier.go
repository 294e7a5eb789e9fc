// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	autherrors "github.com/Originate-Group/common-mcp-submodule/internal/errors"
	"github.com/Originate-Group/common-mcp-submodule/internal/log"
)

// standardClaims are filtered out of Extra because they are mapped to
// Identity first-class fields or carry no useful metadata.
// Mapped fields: sub -> UserID, email -> Email, preferred_username ->
// Username, name -> DisplayName, scope -> Scopes.
var standardClaims = map[string]bool{
	"sub":                true,
	"email":              true,
	"preferred_username": true,
	"name":               true,
	"scope":              true,
	"iss":                true,
	"aud":                true,
	"exp":                true,
	"iat":                true,
	"nbf":                true,
	"jti":                true,
	"kid":                true,
}

// TokenVerifierInterface verifies a bearer access token.
type TokenVerifierInterface interface {
	VerifyAccessToken(ctx context.Context, token string) (Identity, error)
}

// TokenVerifierFunc adapts a function to TokenVerifierInterface.
type TokenVerifierFunc func(ctx context.Context, token string) (Identity, error)

// VerifyAccessToken implements TokenVerifierInterface.
func (f TokenVerifierFunc) VerifyAccessToken(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// defaultClockSkew is the tolerance applied to time-based claims.
const defaultClockSkew = 60 * time.Second

// OAuthVerifierConfig configures JWT verification against a remote JWKS.
type OAuthVerifierConfig struct {
	// JWKSURL is the key set endpoint of the authorization server.
	JWKSURL string

	// Issuer is the exact required value of the 'iss' claim.
	Issuer string

	// Algorithms lists accepted signature algorithms. Defaults to RS256.
	Algorithms []string

	// VerifyAudience enables the 'aud' claim check against Audience.
	VerifyAudience bool

	// Audience is the required audience value when VerifyAudience is set.
	Audience string

	// ClockSkew is the tolerance for 'exp' and 'nbf'. Defaults to 60s.
	ClockSkew time.Duration

	// KeySet overrides the JWKS cache, mainly for tests.
	KeySet *KeySetCache

	// Logger for verification events.
	Logger log.Logger
}

// OAuthVerifier validates OAuth JWT access tokens using a cached JWKS.
type OAuthVerifier struct {
	keySet     *KeySetCache
	issuer     string
	algorithms map[string]jwa.SignatureAlgorithm
	verifyAud  bool
	audience   string
	clockSkew  time.Duration
	logger     log.Logger
}

// NewOAuthVerifier creates an OAuth token verifier.
func NewOAuthVerifier(cfg OAuthVerifierConfig) (*OAuthVerifier, error) {
	if cfg.JWKSURL == "" && cfg.KeySet == nil {
		return nil, fmt.Errorf("JWKSURL is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if cfg.VerifyAudience && cfg.Audience == "" {
		return nil, fmt.Errorf("audience is required when audience verification is enabled")
	}

	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = []string{"RS256"}
	}
	allowed := make(map[string]jwa.SignatureAlgorithm, len(algorithms))
	for _, name := range algorithms {
		alg, ok := signatureAlgorithm(name)
		if !ok {
			return nil, fmt.Errorf("unsupported signature algorithm: %s", name)
		}
		allowed[name] = alg
	}

	keySet := cfg.KeySet
	if keySet == nil {
		keySet = NewKeySetCache(cfg.JWKSURL)
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = defaultClockSkew
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewZapLogger()
	}

	return &OAuthVerifier{
		keySet:     keySet,
		issuer:     cfg.Issuer,
		algorithms: allowed,
		verifyAud:  cfg.VerifyAudience,
		audience:   cfg.Audience,
		clockSkew:  skew,
		logger:     logger,
	}, nil
}

// signatureAlgorithm resolves an algorithm name to its jwa value.
func signatureAlgorithm(name string) (jwa.SignatureAlgorithm, bool) {
	for _, alg := range jwa.SignatureAlgorithms() {
		if alg.String() == name {
			return alg, true
		}
	}
	return "", false
}

// VerifyAccessToken validates a JWT access token and extracts the caller
// identity. Failures are classified: a malformed envelope, an unknown signing
// key, a bad signature, an issuer mismatch, an expired token and an audience
// mismatch are each reported distinctly.
func (v *OAuthVerifier) VerifyAccessToken(ctx context.Context, tokenStr string) (Identity, error) {
	alg, kid, err := v.parseHeader(tokenStr)
	if err != nil {
		return Identity{}, err
	}

	key, err := v.keySet.Lookup(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Identity{}, autherrors.NewAuthError(autherrors.ErrUnknownKey,
				fmt.Sprintf("no key with id %q in JWKS", kid))
		}
		v.logger.Errorf("JWKS lookup failed: %v", err)
		return Identity{}, autherrors.NewAuthError(autherrors.ErrVerifierError, "failed to load signing keys")
	}

	// Signature check only; time and claim checks run below so each
	// failure mode keeps its own classification.
	token, err := jwt.Parse([]byte(tokenStr),
		jwt.WithKey(alg, key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return Identity{}, autherrors.NewAuthError(autherrors.ErrBadSignature, "signature verification failed")
	}

	if err := v.validateClaims(token); err != nil {
		return Identity{}, err
	}
	return v.identityFromToken(ctx, token, tokenStr)
}

// parseHeader extracts and screens the JWS protected header.
func (v *OAuthVerifier) parseHeader(tokenStr string) (jwa.SignatureAlgorithm, string, error) {
	msg, err := jws.Parse([]byte(tokenStr))
	if err != nil {
		return "", "", autherrors.NewAuthError(autherrors.ErrMalformedToken, "cannot parse token")
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", "", autherrors.NewAuthError(autherrors.ErrMalformedToken, "no signature in token")
	}
	headers := sigs[0].ProtectedHeaders()
	if headers == nil {
		return "", "", autherrors.NewAuthError(autherrors.ErrMalformedToken, "missing protected header")
	}

	algName := headers.Algorithm().String()
	alg, ok := v.algorithms[algName]
	if !ok {
		return "", "", autherrors.NewAuthError(autherrors.ErrMalformedToken,
			fmt.Sprintf("algorithm %q not allowed", algName))
	}
	kid := headers.KeyID()
	if kid == "" {
		return "", "", autherrors.NewAuthError(autherrors.ErrMalformedToken, "missing key id (kid) in token header")
	}
	return alg, kid, nil
}

// validateClaims applies the issuer, time and audience checks.
func (v *OAuthVerifier) validateClaims(token jwt.Token) error {
	if token.Issuer() != v.issuer {
		return autherrors.NewAuthError(autherrors.ErrIssuerMismatch,
			fmt.Sprintf("unexpected issuer %q", token.Issuer()))
	}

	now := time.Now()
	if exp := token.Expiration(); exp.IsZero() || now.After(exp.Add(v.clockSkew)) {
		return autherrors.NewAuthError(autherrors.ErrExpiredToken, "token expired")
	}
	if nbf := token.NotBefore(); !nbf.IsZero() && now.Add(v.clockSkew).Before(nbf) {
		return autherrors.NewAuthError(autherrors.ErrExpiredToken, "token not yet valid")
	}

	if v.verifyAud {
		found := false
		for _, aud := range token.Audience() {
			if aud == v.audience {
				found = true
				break
			}
		}
		if !found {
			return autherrors.NewAuthError(autherrors.ErrAudienceMismatch, "token audience mismatch")
		}
	}
	return nil
}

// identityFromToken maps the JWT claims onto an Identity.
func (v *OAuthVerifier) identityFromToken(ctx context.Context, token jwt.Token, tokenStr string) (Identity, error) {
	sub := token.Subject()
	if sub == "" {
		return Identity{}, autherrors.NewAuthError(autherrors.ErrMalformedToken, "missing required 'sub' claim")
	}

	identity := Identity{
		UserID: sub,
		Token:  tokenStr,
	}
	if s, ok := stringClaim(token, "email"); ok {
		identity.Email = s
	}
	if s, ok := stringClaim(token, "preferred_username"); ok {
		identity.Username = s
	}
	if s, ok := stringClaim(token, "name"); ok {
		identity.DisplayName = s
	}
	if s, ok := stringClaim(token, "scope"); ok && s != "" {
		identity.Scopes = strings.Split(s, " ")
	}
	identity.Extra = extractExtra(ctx, token)
	return identity, nil
}

func stringClaim(token jwt.Token, name string) (string, bool) {
	v, ok := token.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// extractExtra collects non-standard claims.
func extractExtra(ctx context.Context, token jwt.Token) map[string]interface{} {
	all, _ := token.AsMap(ctx)
	if len(all) == 0 {
		return nil
	}
	extra := make(map[string]interface{})
	for key, value := range all {
		if standardClaims[key] {
			continue
		}
		extra[key] = value
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
