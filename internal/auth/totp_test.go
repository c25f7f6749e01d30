package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPManager_GenerateKey_Success(t *testing.T) {
	tm := NewTOTPManager("Aegis")

	key, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	// 32 random bytes base32-encode to 52 characters
	assert.Len(t, key.Secret(), 52)
	assert.Contains(t, key.URL(), "otpauth://totp/")
	assert.Contains(t, key.URL(), "issuer=Aegis")
}

func TestTOTPManager_GenerateKey_FreshSecrets(t *testing.T) {
	tm := NewTOTPManager("Aegis")

	first, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)
	second, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Secret(), second.Secret())
}

func TestTOTPManager_GenerateCode_Deterministic(t *testing.T) {
	tm := NewTOTPManager("Aegis")
	key, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	first, err := tm.GenerateCode(key.Secret(), at)
	require.NoError(t, err)
	second, err := tm.GenerateCode(key.Secret(), at)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 6)
}

func TestTOTPManager_VerifyCode_CurrentStep(t *testing.T) {
	tm := NewTOTPManager("Aegis")
	key, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	code, err := tm.GenerateCode(key.Secret(), at)
	require.NoError(t, err)

	assert.True(t, tm.VerifyCode(key.Secret(), code, at))
}

func TestTOTPManager_VerifyCode_DriftWindow(t *testing.T) {
	tm := NewTOTPManager("Aegis")
	key, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"one step behind", -30 * time.Second, true},
		{"one step ahead", 30 * time.Second, true},
		{"two steps behind", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := tm.GenerateCode(key.Secret(), at.Add(tt.offset))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tm.VerifyCode(key.Secret(), code, at))
		})
	}
}

func TestTOTPManager_VerifyCode_Malformed(t *testing.T) {
	tm := NewTOTPManager("Aegis")
	key, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	at := time.Now()

	// Malformed input is a verification failure, never a panic or error
	malformed := []string{"", "12345", "1234567", "12345a", "abcdef", "12 456"}
	for _, code := range malformed {
		assert.False(t, tm.VerifyCode(key.Secret(), code, at), "code %q", code)
	}
}

func TestTOTPManager_VerifyCode_WrongSecret(t *testing.T) {
	tm := NewTOTPManager("Aegis")
	first, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)
	second, err := tm.GenerateKey("alice@example.com")
	require.NoError(t, err)

	at := time.Now()
	code, err := tm.GenerateCode(first.Secret(), at)
	require.NoError(t, err)

	assert.False(t, tm.VerifyCode(second.Secret(), code, at))
}
