package whop

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusPaused    = "paused"
)

type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	ProfilePictureURL string     `json:"profile_picture_url,omitempty"`
	CreatedAt         *Timestamp `json:"created_at,omitempty"`
}

type Membership struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CompanyID string     `json:"company_id"`
	PlanID    string     `json:"plan_id"`
	Status    string     `json:"status"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
	ExpiresAt *Timestamp `json:"expires_at,omitempty"`
}

func (m Membership) IsActive() bool {
	return m.Status == StatusActive
}

type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

type membershipsEnvelope struct {
	Data []Membership `json:"data"`
}

// Timestamp decodes either an RFC3339 string or unix seconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}

	parsed, ok := ParseTimestamp(raw)
	if !ok {
		return &time.ParseError{Layout: time.RFC3339, Value: raw, Message: ": not an RFC3339 time or unix seconds"}
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// Ptr returns the time, or nil for a nil or zero timestamp.
func (t *Timestamp) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// ParseTimestamp accepts RFC3339 (with or without fractional seconds) or unix seconds.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, true
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Unix(int64(secs), 0).UTC(), true
	}
	return time.Time{}, false
}
