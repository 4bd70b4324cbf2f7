package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKey_EncodeDecodeHierarchy(t *testing.T) {
	profile := ProfileKey("alice@example.com")
	conf := IDKey(KindConference, 42, profile)
	session := IDKey(KindSession, 7, conf)

	decoded, err := DecodeKey(session.Encode())
	require.NoError(t, err)

	assert.True(t, decoded.Equal(session))
	assert.Equal(t, "Profile,salice@example.com/Conference,i42/Session,i7", decoded.Path())
	assert.True(t, decoded.HasAncestor(conf))
	assert.True(t, decoded.HasAncestor(profile))
	assert.True(t, decoded.HasAncestor(session))
	assert.False(t, conf.HasAncestor(session))
	assert.Equal(t, []string{session.Path(), conf.Path(), profile.Path()}, session.Ancestors())
}

func TestKey_NameWithSeparators(t *testing.T) {
	k := NameKey(KindProfile, "odd/name,with%chars", nil)
	decoded, err := DecodeKey(k.Encode())
	require.NoError(t, err)
	assert.Equal(t, "odd/name,with%chars", decoded.StringID)
	assert.Nil(t, decoded.Parent)
}

func TestDecodeKey_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "!!!"},
		{"no id", "UHJvZmlsZQ"},               // "Profile"
		{"zero int id", "Q29uZmVyZW5jZSxpMA"}, // "Conference,i0"
		{"unknown id type", "UHJvZmlsZSx4MQ"}, // "Profile,x1"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeKey(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestKey_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(1, 4).Draw(t, "depth")
		var key *Key
		for i := 0; i < depth; i++ {
			kind := rapid.SampledFrom([]string{KindProfile, KindConference, KindSession}).Draw(t, "kind")
			if rapid.Bool().Draw(t, "named") {
				key = NameKey(kind, rapid.StringN(1, 20, -1).Draw(t, "name"), key)
			} else {
				key = IDKey(kind, rapid.Int64Range(1, 1<<53).Draw(t, "id"), key)
			}
		}
		decoded, err := DecodeKey(key.Encode())
		if err != nil {
			t.Fatalf("decode %q: %v", key.Path(), err)
		}
		if !decoded.Equal(key) {
			t.Fatalf("round trip mismatch: %q vs %q", decoded.Path(), key.Path())
		}
	})
}
