package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"type":"classifier.fitted","classifier":"faces"}`)

	signature := Sign("my-secret-key", 1700000000, payload)
	assert.Contains(t, signature, "sha256=")
	assert.Len(t, signature, len("sha256=")+64)

	// deterministic
	assert.Equal(t, signature, Sign("my-secret-key", 1700000000, payload))
	assert.NotEqual(t, signature, Sign("my-secret-key", 1700000001, payload))
}

func TestVerify(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"test":"data"}`)
	const ts = int64(1700000000)
	validSignature := Sign(secret, ts, payload)

	tests := []struct {
		name      string
		secret    string
		timestamp int64
		payload   []byte
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			timestamp: ts,
			payload:   payload,
			signature: validSignature,
			expected:  true,
		},
		{
			name:      "invalid signature",
			secret:    secret,
			timestamp: ts,
			payload:   payload,
			signature: "sha256=invalid",
			expected:  false,
		},
		{
			name:      "wrong secret",
			secret:    "wrong-secret",
			timestamp: ts,
			payload:   payload,
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "modified payload",
			secret:    secret,
			timestamp: ts,
			payload:   []byte(`{"test":"modified"}`),
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "replayed with new timestamp",
			secret:    secret,
			timestamp: ts + 300,
			payload:   payload,
			signature: validSignature,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Verify(tt.secret, tt.timestamp, tt.payload, tt.signature)
			assert.Equal(t, tt.expected, result)
		})
	}
}
