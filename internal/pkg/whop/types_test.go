package whop

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in     string
		ok     bool
		expect time.Time
	}{
		{in: "2025-03-01T12:00:00Z", ok: true, expect: want},
		{in: "2025-03-01T13:00:00+01:00", ok: true, expect: want},
		{in: "2025-03-01T12:00:00.000Z", ok: true, expect: want},
		{in: "1740830400", ok: true, expect: want},
		{in: "1740830400.0", ok: true, expect: want},
		{in: "", ok: false},
		{in: "next tuesday", ok: false},
	}

	for _, tc := range tests {
		got, ok := ParseTimestamp(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.True(t, tc.expect.Equal(got), "%s: got %s", tc.in, got)
		}
	}
}

func TestMembershipJSON(t *testing.T) {
	t.Parallel()

	var m Membership
	err := json.Unmarshal([]byte(`{"id":"mem_1","company_id":"biz_1","status":"active","expires_at":1740830400,"created_at":null}`), &m)
	require.NoError(t, err)
	assert.True(t, m.IsActive())
	require.NotNil(t, m.ExpiresAt)
	assert.Equal(t, int64(1740830400), m.ExpiresAt.Unix())
	assert.Nil(t, m.CreatedAt.Ptr())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"expires_at":"2025-03-01T12:00:00Z"`)

	err = json.Unmarshal([]byte(`{"expires_at":"garbage"}`), &m)
	assert.Error(t, err)
}
