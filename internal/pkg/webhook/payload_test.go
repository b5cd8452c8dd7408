package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadRejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `not json`, `[1,2]`, `"str"`, `{"type":`} {
		_, err := ParsePayload([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidPayload, raw)
	}
}

func TestEventType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: `{"type":"membership.created","event_type":"ignored"}`, want: "membership.created"},
		{raw: `{"event_type":"user.updated"}`, want: "user.updated"},
		{raw: `{"type":"","event_type":"payment.failed"}`, want: "payment.failed"},
		{raw: `{"type":{"nested":true}}`, want: "unknown"},
		{raw: `{}`, want: "unknown"},
	}

	for _, tc := range tests {
		p, err := ParsePayload([]byte(tc.raw))
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.EventType(), tc.raw)
	}
}

func TestProbeFlatThenNested(t *testing.T) {
	t.Parallel()

	flat, err := ParsePayload([]byte(`{"type":"x","user_id":"u_flat","membership_id":"m_flat","company_id":"c","plan_id":42}`))
	require.NoError(t, err)
	nested, err := ParsePayload([]byte(`{"type":"x","data":{"user_id":"u_nested","membership_id":"m_nested","company_id":"c","plan_id":"p"}}`))
	require.NoError(t, err)
	both, err := ParsePayload([]byte(`{"type":"x","user_id":"u_top","data":{"user_id":"u_nested","membership_id":"m_nested"}}`))
	require.NoError(t, err)

	assert.Equal(t, "u_flat", flat.Probe("user_id"))
	assert.Equal(t, "m_flat", flat.Probe("membership_id"))
	assert.Equal(t, "42", flat.Probe("plan_id"))
	assert.Equal(t, "u_nested", nested.Probe("user_id"))
	assert.Equal(t, "p", nested.Probe("plan_id"))
	assert.Equal(t, "u_top", both.Probe("user_id"), "top level wins")
	assert.Equal(t, "m_nested", both.Probe("membership_id"))
	assert.Equal(t, "", flat.Probe("missing"))
}

func TestProbeIgnoresEmptyAndNonScalar(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload([]byte(`{"user_id":"","company_id":{"id":"x"},"data":{"user_id":"u_1","company_id":"c_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "u_1", p.Probe("user_id"))
	assert.Equal(t, "c_1", p.Probe("company_id"))
}

func TestSubject(t *testing.T) {
	t.Parallel()

	nested, err := ParsePayload([]byte(`{"id":"evt_1","data":{"id":"mem_1","company":{"id":"biz_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "mem_1", nested.Subject().String("id"))
	assert.Equal(t, "biz_1", nested.Subject().First("company_id", "company.id"))

	flat, err := ParsePayload([]byte(`{"id":"mem_2","data":"not an object"}`))
	require.NoError(t, err)
	assert.Equal(t, "mem_2", flat.Subject().String("id"))
}

func TestFieldsTime(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload([]byte(`{"a":"2030-01-02T03:04:05Z","b":1893553445,"c":"1893553445","d":"soon","e":null}`))
	require.NoError(t, err)
	f := p.Subject()

	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, path := range []string{"a", "b", "c"} {
		got := f.Time(path)
		require.NotNil(t, got, path)
		assert.True(t, want.Equal(*got), "%s: %s", path, got)
	}
	assert.Nil(t, f.Time("d"))
	assert.Nil(t, f.Time("e"))
	assert.Nil(t, f.Time("missing"))
}
