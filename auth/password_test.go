package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func fastArgon2() *Argon2idHasher {
	return NewArgon2idHasher(WithArgon2Time(1), WithArgon2Memory(1024), WithArgon2Threads(1))
}

func TestHashPasswordDeterministic(t *testing.T) {
	a := HashPassword("hunter22", "salt-one-0123456")
	b := HashPassword("hunter22", "salt-one-0123456")
	if a != b {
		t.Fatalf("same input produced different hashes")
	}
	if a == HashPassword("hunter22", "salt-two-0123456") {
		t.Fatalf("different salts produced the same hash")
	}
	if !VerifyPassword("hunter22", "salt-one-0123456", a) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("hunter23", "salt-one-0123456", a) {
		t.Fatalf("wrong password verified")
	}
}

func TestHMACHasherRoundTrip(t *testing.T) {
	h := NewHMACHasher()
	ctx := context.Background()

	hash, err := h.Hash(ctx, []byte("correcthorse"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash.Algorithm != AlgorithmHMACSHA256 {
		t.Fatalf("algorithm = %s", hash.Algorithm)
	}
	if len(hash.Salt) != DefaultSaltLength {
		t.Fatalf("salt length = %d", len(hash.Salt))
	}
	if hash.Value == "correcthorse" || len(hash.Value) != 64 {
		t.Fatalf("unexpected hash value %q", hash.Value)
	}
	if err := h.Compare(ctx, []byte("correcthorse"), hash); err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if err := h.Compare(ctx, []byte("correcthorsf"), hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	again, err := h.Hash(ctx, []byte("correcthorse"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if again.Salt == hash.Salt || again.Value == hash.Value {
		t.Fatalf("salt must be fresh for every hash")
	}
}

func TestHMACHasherSaltLengthOption(t *testing.T) {
	h := NewHMACHasher(WithHMACSaltLength(32))
	hash, err := h.Hash(context.Background(), []byte("correcthorse"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(hash.Salt) != 32 {
		t.Fatalf("salt length = %d, want 32", len(hash.Salt))
	}

	short := NewHMACHasher(WithHMACSaltLength(4))
	hash, _ = short.Hash(context.Background(), []byte("correcthorse"))
	if len(hash.Salt) != DefaultSaltLength {
		t.Fatalf("short salt length should be ignored, got %d", len(hash.Salt))
	}
}

func TestHMACHasherCompareInvalidRecords(t *testing.T) {
	h := NewHMACHasher()
	ctx := context.Background()

	if err := h.Compare(ctx, []byte("x"), PasswordHash{Algorithm: AlgorithmArgon2id, Salt: "s", Value: "v"}); !errors.Is(err, ErrPasswordInvalidAlgorithm) {
		t.Fatalf("expected ErrPasswordInvalidAlgorithm, got %v", err)
	}
	if err := h.Compare(ctx, []byte("x"), PasswordHash{Algorithm: AlgorithmHMACSHA256}); !errors.Is(err, ErrPasswordInvalidHash) {
		t.Fatalf("expected ErrPasswordInvalidHash, got %v", err)
	}
}

func TestHasherRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHMACHasher().Hash(ctx, []byte("correcthorse")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := fastArgon2().Hash(ctx, []byte("correcthorse")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestArgon2idHasherRoundTrip(t *testing.T) {
	h := fastArgon2()
	ctx := context.Background()

	hash, err := h.Hash(ctx, []byte("correcthorse"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash.Algorithm != AlgorithmArgon2id {
		t.Fatalf("algorithm = %s", hash.Algorithm)
	}
	if !strings.HasPrefix(hash.Value, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %s", hash.Value)
	}
	if err := h.Compare(ctx, []byte("correcthorse"), hash); err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if err := h.Compare(ctx, []byte("wrong-horse"), hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	// A hasher with different defaults still verifies old records.
	if err := NewArgon2idHasher(WithArgon2Time(2), WithArgon2Memory(2048)).Compare(ctx, []byte("correcthorse"), hash); err != nil {
		t.Fatalf("Compare() with other defaults error = %v", err)
	}
}

func TestArgon2idHasherRejectsCorruptValues(t *testing.T) {
	h := fastArgon2()
	for _, value := range []string{
		"garbage",
		"$argon2i$v=19$m=1024,t=1,p=1$AAAA",
		"$argon2id$v=18$m=1024,t=1,p=1$AAAA",
		"$argon2id$v=19$m=x,t=1,p=1$AAAA",
		"$argon2id$v=19$m=0,t=1,p=1$AAAA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!",
	} {
		err := h.Compare(context.Background(), []byte("pw"), PasswordHash{Algorithm: AlgorithmArgon2id, Salt: "salt", Value: value})
		if !errors.Is(err, ErrPasswordInvalidHash) && !errors.Is(err, ErrPasswordInvalidAlgorithm) {
			t.Fatalf("Compare(%q) error = %v", value, err)
		}
	}
}

func TestMultiHasherDispatchesOnAlgorithm(t *testing.T) {
	hmacHasher := NewHMACHasher()
	argon := fastArgon2()
	multi, err := NewMultiHasher(AlgorithmHMACSHA256, map[string]PasswordHasher{
		AlgorithmHMACSHA256: hmacHasher,
		AlgorithmArgon2id:   argon,
	})
	if err != nil {
		t.Fatalf("NewMultiHasher() error = %v", err)
	}
	ctx := context.Background()

	fresh, err := multi.Hash(ctx, []byte("correcthorse"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if fresh.Algorithm != AlgorithmHMACSHA256 {
		t.Fatalf("primary algorithm not used: %s", fresh.Algorithm)
	}

	legacy, err := argon.Hash(ctx, []byte("correcthorse"))
	if err != nil {
		t.Fatalf("argon Hash() error = %v", err)
	}
	if err := multi.Compare(ctx, []byte("correcthorse"), legacy); err != nil {
		t.Fatalf("Compare(argon2id) error = %v", err)
	}
	if err := multi.Compare(ctx, []byte("correcthorse"), PasswordHash{Algorithm: "md5"}); !errors.Is(err, ErrPasswordInvalidAlgorithm) {
		t.Fatalf("expected ErrPasswordInvalidAlgorithm, got %v", err)
	}

	if _, err := NewMultiHasher("bcrypt", map[string]PasswordHasher{AlgorithmHMACSHA256: hmacHasher}); !errors.Is(err, ErrPasswordInvalidAlgorithm) {
		t.Fatalf("expected ErrPasswordInvalidAlgorithm for unknown primary, got %v", err)
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		opts     PasswordValidationOptions
		want     error
	}{
		{name: "ok", password: "correcthorse", opts: DefaultPasswordValidation()},
		{name: "empty", password: "", opts: DefaultPasswordValidation(), want: ErrPasswordTooShort},
		{name: "short", password: "abc", opts: DefaultPasswordValidation(), want: ErrPasswordTooShort},
		{name: "long", password: strings.Repeat("ab", 100), opts: DefaultPasswordValidation(), want: ErrPasswordTooLong},
		{name: "common", password: "Password1", opts: DefaultPasswordValidation(), want: ErrPasswordCommon},
		{name: "sequential", password: "abcdefg", opts: DefaultPasswordValidation(), want: ErrPasswordCommon},
		{name: "repeating", password: "zzzzzzzz", opts: DefaultPasswordValidation(), want: ErrPasswordCommon},
		{name: "needs upper", password: "correcthorse", opts: PasswordValidationOptions{RequireUppercase: true}, want: ErrPasswordNoUppercase},
		{name: "needs lower", password: "CORRECTHORSE", opts: PasswordValidationOptions{RequireLowercase: true}, want: ErrPasswordNoLowercase},
		{name: "needs digit", password: "correcthorse", opts: PasswordValidationOptions{RequireDigit: true}, want: ErrPasswordNoDigit},
		{name: "unicode length", password: "ééééé", opts: DefaultPasswordValidation(), want: ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength([]byte(tt.password), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ValidatePasswordStrength(%q) = %v, want %v", tt.password, err, tt.want)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a.b+c@sub.example.org", " bob@example.io "}
	invalid := []string{"", "alice", "alice@", "@example.com", "alice@example", strings.Repeat("a", 250) + "@x.com"}

	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Fatalf("expected %q to be valid", email)
		}
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Fatalf("expected %q to be invalid", email)
		}
	}
}
