package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionRoundTrip(t *testing.T) {
	s := sessions{secret: []byte("secret"), maxAge: 7 * 24 * time.Hour}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	value := s.issue("1234", now)

	id, ok := s.parse(value, now.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, "1234", id)

	_, ok = s.parse(value, now.Add(8*24*time.Hour))
	assert.False(t, ok, "expired")

	_, ok = s.parse("9999"+value[4:], now)
	assert.False(t, ok, "tampered user id")

	other := sessions{secret: []byte("other"), maxAge: time.Hour}
	_, ok = other.parse(value, now)
	assert.False(t, ok, "wrong secret")

	for _, bad := range []string{"", "1234", "1234:abc", ":1:2"} {
		_, ok = s.parse(bad, now)
		assert.False(t, ok, bad)
	}
}
