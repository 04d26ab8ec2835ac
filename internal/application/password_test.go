package application

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// cheapParams keeps argon2id fast in tests.
var cheapParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("secret1", cheapParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt returned error: %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		want     error
	}{
		{name: "argon2id match", hash: hash, password: "secret1"},
		{name: "argon2id mismatch", hash: hash, password: "secret2", want: ErrInvalidCredentials},
		{name: "bcrypt match", hash: string(legacy), password: "secret1"},
		{name: "bcrypt mismatch", hash: string(legacy), password: "nope", want: ErrInvalidCredentials},
		{name: "garbage", hash: "plain-text", password: "secret1", want: ErrInvalidPasswordHash},
		{name: "bad salt", hash: "$argon2id$v=19$m=1024,t=1,p=1$!!$AAAA", password: "secret1", want: ErrInvalidPasswordHash},
		{name: "old version", hash: "$argon2id$v=16$m=1024,t=1,p=1$AAAA$AAAA", password: "secret1", want: ErrIncompatiblePasswordVersion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := VerifyPassword(tc.hash, tc.password)
			if tc.want == nil && err != nil {
				t.Fatalf("expected match, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	weak, err := CreatePasswordHash("secret1", cheapParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	current := argon2idHash{params: DefaultArgon2idParams, salt: make([]byte, 16), key: make([]byte, 32)}.String()

	for hash, want := range map[string]bool{
		"$2a$10$abcdefghijklmnopqrstuuJ6x5b5cG8sQe3kqPZ9e6Y1a2b3c4d5e": true,
		weak:        true,
		current:     false,
		"something": false,
	} {
		if got := NeedsRehash(hash); got != want {
			t.Errorf("NeedsRehash(%q) = %v, want %v", hash, got, want)
		}
	}
}
