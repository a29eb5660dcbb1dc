package model

import (
    "encoding/json"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestUserView_OmitsPasswordHash(t *testing.T) {
    u := User{ID: 7, Email: "a@x.com", PasswordHash: "$2a$10$secret", FirstName: "A", LastName: "B", Role: RoleUser}

    raw, err := json.Marshal(u.View())
    require.NoError(t, err)

    assert.JSONEq(t, `{"id":7,"email":"a@x.com","firstName":"A","lastName":"B","role":"user"}`, string(raw))
    assert.NotContains(t, string(raw), "secret")
}

func TestValidRole(t *testing.T) {
    assert.True(t, ValidRole(RoleUser))
    assert.True(t, ValidRole(RoleAdmin))
    assert.False(t, ValidRole(""))
    assert.False(t, ValidRole("ADMIN"))
    assert.False(t, ValidRole("owner"))
}

func TestPasswordResetToken_IsExpired(t *testing.T) {
    exp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
    tok := PasswordResetToken{ExpiresAt: exp}

    assert.False(t, tok.IsExpired(exp.Add(-time.Second)))
    assert.False(t, tok.IsExpired(exp), "a token is still valid at its exact expiry instant")
    assert.True(t, tok.IsExpired(exp.Add(time.Millisecond)))
}
