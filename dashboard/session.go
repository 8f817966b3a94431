package dashboard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const sessionCookie = "strikebot_session"

// sessions signs cookies of the form "<user id>:<unix ts>:<hex hmac>".
type sessions struct {
	secret []byte
	maxAge time.Duration
}

func (s sessions) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s sessions) issue(userID string, now time.Time) string {
	payload := userID + ":" + strconv.FormatInt(now.Unix(), 10)
	return payload + ":" + s.sign(payload)
}

// parse returns the user id of a valid, unexpired session value.
func (s sessions) parse(value string, now time.Time) (string, bool) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", false
	}
	want := s.sign(parts[0] + ":" + parts[1])
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", false
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	issued := time.Unix(ts, 0)
	if now.Sub(issued) > s.maxAge || issued.After(now.Add(time.Minute)) {
		return "", false
	}
	return parts[0], true
}
