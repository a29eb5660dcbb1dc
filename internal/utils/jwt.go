package utils // package utils provides the password hasher, session token signer and token helpers

import (
    "errors"  // sentinel error for verification failures
    "strconv" // subject is encoded as a decimal string
    "time"    // issue and expiry timestamps

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// SessionTTL is the fixed lifetime of a session token.
const SessionTTL = 24 * time.Hour

// ErrInvalidToken is returned by Verify for any token that is malformed,
// expired, signed with another key or signed with another algorithm.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity asserted by a session token.
type Claims struct {
    Subject uint64 // user id
    Role    string // user role at issue time
}

// IssuedToken is a signed session token along with its expiry.
type IssuedToken struct {
    Token     string    // the serialized JWT string
    ExpiresAt time.Time // the UTC expiration time
}

// sessionClaims is the JWT payload: the registered claims sub, iat and exp
// plus the role.
type sessionClaims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens with a process-wide key.
// HS256 is the only accepted algorithm.
type Signer struct {
    key []byte
    ttl time.Duration
    now func() time.Time
}

// NewSigner returns a Signer for the given secret. An empty secret is
// rejected; there is no fallback key.
func NewSigner(secret string) (*Signer, error) {
    if secret == "" {
        return nil, errors.New("jwt signing secret is empty")
    }
    return &Signer{key: []byte(secret), ttl: SessionTTL, now: time.Now}, nil
}

// Issue builds and signs a token for c. The token carries sub, role, iat
// and exp = iat + SessionTTL.
func (s *Signer) Issue(c Claims) (IssuedToken, error) {
    // JWT timestamps have second precision; truncate so ExpiresAt matches exp.
    iat := s.now().UTC().Truncate(time.Second)
    exp := iat.Add(s.ttl)
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
        Role: c.Role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(c.Subject, 10),
            IssuedAt:  jwt.NewNumericDate(iat),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    })
    signed, err := t.SignedString(s.key)
    if err != nil {
        return IssuedToken{}, err
    }
    return IssuedToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify parses raw and returns its claims. Every failure is reported as
// ErrInvalidToken.
func (s *Signer) Verify(raw string) (Claims, error) {
    var sc sessionClaims
    tok, err := jwt.ParseWithClaims(raw, &sc,
        func(*jwt.Token) (interface{}, error) { return s.key, nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(s.now),
    )
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    id, err := strconv.ParseUint(sc.Subject, 10, 64)
    if err != nil || id == 0 || sc.Role == "" {
        return Claims{}, ErrInvalidToken
    }
    return Claims{Subject: id, Role: sc.Role}, nil
}
