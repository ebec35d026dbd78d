package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordTooShort         = errors.New("auth: password too short")
	ErrPasswordTooLong          = errors.New("auth: password too long")
	ErrPasswordNoUppercase      = errors.New("auth: password must contain uppercase letter")
	ErrPasswordNoLowercase      = errors.New("auth: password must contain lowercase letter")
	ErrPasswordNoDigit          = errors.New("auth: password must contain digit")
	ErrPasswordCommon           = errors.New("auth: password is too common")
	ErrPasswordMismatch         = errors.New("auth: password does not match")
	ErrPasswordInvalidAlgorithm = errors.New("auth: unsupported password algorithm")
	ErrPasswordInvalidHash      = errors.New("auth: invalid password hash")
)

const (
	AlgorithmHMACSHA256 = "hmac-sha256"
	AlgorithmArgon2id   = "argon2id"
)

const (
	DefaultArgon2Time    = 3
	DefaultArgon2Memory  = 64 * 1024
	DefaultArgon2Threads = 4
	DefaultArgon2KeyLen  = 32
	DefaultSaltLength    = 16
	MinPasswordLength    = 6
	MaxPasswordLength    = 128
)

// HashPassword returns the keyed hash of plain under salt. The salt is the HMAC
// key; the password is the message.
func HashPassword(plain, salt string) string {
	return Sign([]byte(plain), []byte(salt))
}

// VerifyPassword reports whether plain hashes to expected under salt.
func VerifyPassword(plain, salt, expected string) bool {
	return Verify([]byte(plain), []byte(salt), expected)
}

// PasswordValidationOptions configures password strength requirements.
type PasswordValidationOptions struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	CheckCommon      bool
}

// DefaultPasswordValidation enforces length and rejects the most common passwords.
func DefaultPasswordValidation() PasswordValidationOptions {
	return PasswordValidationOptions{
		MinLength:   MinPasswordLength,
		MaxLength:   MaxPasswordLength,
		CheckCommon: true,
	}
}

// ValidatePasswordStrength checks password against validation rules.
func ValidatePasswordStrength(password []byte, opts PasswordValidationOptions) error {
	if len(password) == 0 {
		return ErrPasswordTooShort
	}

	s := string(password)
	length := len([]rune(s))

	minLen := opts.MinLength
	if minLen <= 0 {
		minLen = MinPasswordLength
	}
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = MaxPasswordLength
	}

	if length < minLen {
		return ErrPasswordTooShort
	}
	if length > maxLen {
		return ErrPasswordTooLong
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if opts.RequireUppercase && !hasUpper {
		return ErrPasswordNoUppercase
	}
	if opts.RequireLowercase && !hasLower {
		return ErrPasswordNoLowercase
	}
	if opts.RequireDigit && !hasDigit {
		return ErrPasswordNoDigit
	}

	if opts.CheckCommon && isCommonPassword(s) {
		return ErrPasswordCommon
	}

	return nil
}

// HMACHasher stores HMAC-SHA-256(password, salt) with a fresh random salt.
type HMACHasher struct {
	saltLength int
	validation PasswordValidationOptions
}

type HMACHasherOption func(*HMACHasher)

// WithHMACSaltLength sets the salt length in hex characters. Values below
// DefaultSaltLength are ignored.
func WithHMACSaltLength(n int) HMACHasherOption {
	return func(h *HMACHasher) {
		if n >= DefaultSaltLength {
			h.saltLength = n
		}
	}
}

func WithHMACValidation(opts PasswordValidationOptions) HMACHasherOption {
	return func(h *HMACHasher) {
		h.validation = opts
	}
}

func NewHMACHasher(opts ...HMACHasherOption) *HMACHasher {
	h := &HMACHasher{
		saltLength: DefaultSaltLength,
		validation: DefaultPasswordValidation(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *HMACHasher) Hash(ctx context.Context, plain []byte) (PasswordHash, error) {
	if err := contextError(ctx); err != nil {
		return PasswordHash{}, err
	}
	if err := ValidatePasswordStrength(plain, h.validation); err != nil {
		return PasswordHash{}, err
	}

	salt, err := RandomString(h.saltLength)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("auth: failed to generate salt: %w", err)
	}

	return PasswordHash{
		Algorithm: AlgorithmHMACSHA256,
		Salt:      salt,
		Value:     HashPassword(string(plain), salt),
	}, nil
}

func (h *HMACHasher) Compare(ctx context.Context, plain []byte, hash PasswordHash) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if hash.Algorithm != AlgorithmHMACSHA256 {
		return ErrPasswordInvalidAlgorithm
	}
	if hash.Value == "" || hash.Salt == "" {
		return ErrPasswordInvalidHash
	}
	if !VerifyPassword(string(plain), hash.Salt, hash.Value) {
		return ErrPasswordMismatch
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using Argon2id.
type Argon2idHasher struct {
	time       uint32
	memory     uint32
	threads    uint8
	keyLen     uint32
	saltLength int
	validation PasswordValidationOptions
}

// Argon2idHasherOption configures Argon2idHasher.
type Argon2idHasherOption func(*Argon2idHasher)

// WithArgon2Time sets the time parameter (iterations).
func WithArgon2Time(t uint32) Argon2idHasherOption {
	return func(h *Argon2idHasher) {
		if t > 0 {
			h.time = t
		}
	}
}

// WithArgon2Memory sets the memory parameter in KB.
func WithArgon2Memory(m uint32) Argon2idHasherOption {
	return func(h *Argon2idHasher) {
		if m > 0 {
			h.memory = m
		}
	}
}

// WithArgon2Threads sets the parallelism parameter.
func WithArgon2Threads(t uint8) Argon2idHasherOption {
	return func(h *Argon2idHasher) {
		if t > 0 {
			h.threads = t
		}
	}
}

func WithArgon2Validation(opts PasswordValidationOptions) Argon2idHasherOption {
	return func(h *Argon2idHasher) {
		h.validation = opts
	}
}

// NewArgon2idHasher creates a new Argon2id-based password hasher.
func NewArgon2idHasher(opts ...Argon2idHasherOption) *Argon2idHasher {
	h := &Argon2idHasher{
		time:       DefaultArgon2Time,
		memory:     DefaultArgon2Memory,
		threads:    DefaultArgon2Threads,
		keyLen:     DefaultArgon2KeyLen,
		saltLength: DefaultSaltLength,
		validation: DefaultPasswordValidation(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Hash generates an Argon2id hash. Parameters are encoded into Value so a
// later change of defaults does not break existing records.
func (h *Argon2idHasher) Hash(ctx context.Context, plain []byte) (PasswordHash, error) {
	if err := contextError(ctx); err != nil {
		return PasswordHash{}, err
	}
	if err := ValidatePasswordStrength(plain, h.validation); err != nil {
		return PasswordHash{}, err
	}

	salt, err := RandomString(h.saltLength)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("auth: failed to generate salt: %w", err)
	}

	key := argon2.IDKey(plain, []byte(salt), h.time, h.memory, h.threads, h.keyLen)

	return PasswordHash{
		Algorithm: AlgorithmArgon2id,
		Salt:      salt,
		Value: fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
			argon2.Version, h.memory, h.time, h.threads, base64.RawStdEncoding.EncodeToString(key)),
	}, nil
}

// Compare validates a password against a stored hash.
func (h *Argon2idHasher) Compare(ctx context.Context, plain []byte, hash PasswordHash) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if hash.Algorithm != AlgorithmArgon2id {
		return ErrPasswordInvalidAlgorithm
	}
	if hash.Value == "" || hash.Salt == "" {
		return ErrPasswordInvalidHash
	}

	params, stored, err := decodeArgon2Hash(hash.Value)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(plain, []byte(hash.Salt), params.time, params.memory, params.threads, uint32(len(stored)))
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
}

func decodeArgon2Hash(encoded string) (argon2Params, []byte, error) {
	// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$HASH
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" {
		return argon2Params{}, nil, ErrPasswordInvalidHash
	}
	if parts[1] != AlgorithmArgon2id {
		return argon2Params{}, nil, ErrPasswordInvalidAlgorithm
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argon2Params{}, nil, ErrPasswordInvalidHash
	}

	var params argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return argon2Params{}, nil, ErrPasswordInvalidHash
	}
	if params.time == 0 || params.memory == 0 || params.threads == 0 {
		return argon2Params{}, nil, ErrPasswordInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return argon2Params{}, nil, ErrPasswordInvalidHash
	}
	return params, key, nil
}

// MultiHasher hashes new passwords with Primary and verifies stored records
// with whichever hasher matches their algorithm.
type MultiHasher struct {
	primary PasswordHasher
	byAlgo  map[string]PasswordHasher
}

// NewMultiHasher registers hashers by algorithm. primaryAlgorithm must be one
// of the registered keys.
func NewMultiHasher(primaryAlgorithm string, hashers map[string]PasswordHasher) (*MultiHasher, error) {
	primary, ok := hashers[primaryAlgorithm]
	if !ok || primary == nil {
		return nil, fmt.Errorf("%w: %q", ErrPasswordInvalidAlgorithm, primaryAlgorithm)
	}
	byAlgo := make(map[string]PasswordHasher, len(hashers))
	for algo, h := range hashers {
		if h != nil {
			byAlgo[algo] = h
		}
	}
	return &MultiHasher{primary: primary, byAlgo: byAlgo}, nil
}

// DefaultHasher returns a MultiHasher that writes hmac-sha256 records and
// still verifies argon2id ones.
func DefaultHasher() *MultiHasher {
	h, _ := NewMultiHasher(AlgorithmHMACSHA256, map[string]PasswordHasher{
		AlgorithmHMACSHA256: NewHMACHasher(),
		AlgorithmArgon2id:   NewArgon2idHasher(),
	})
	return h
}

func (m *MultiHasher) Hash(ctx context.Context, plain []byte) (PasswordHash, error) {
	return m.primary.Hash(ctx, plain)
}

func (m *MultiHasher) Compare(ctx context.Context, plain []byte, hash PasswordHash) error {
	h, ok := m.byAlgo[hash.Algorithm]
	if !ok {
		return ErrPasswordInvalidAlgorithm
	}
	return h.Compare(ctx, plain, hash)
}

var commonPasswords = map[string]struct{}{
	"123456":      {},
	"password":    {},
	"12345678":    {},
	"qwerty":      {},
	"123456789":   {},
	"111111":      {},
	"1234567":     {},
	"dragon":      {},
	"123123":      {},
	"baseball":    {},
	"abc123":      {},
	"football":    {},
	"monkey":      {},
	"letmein":     {},
	"shadow":      {},
	"master":      {},
	"666666":      {},
	"qwertyuiop":  {},
	"123321":      {},
	"mustang":     {},
	"1234567890":  {},
	"michael":     {},
	"654321":      {},
	"superman":    {},
	"1qaz2wsx":    {},
	"121212":      {},
	"000000":      {},
	"qazwsx":      {},
	"123qwe":      {},
	"trustno1":    {},
	"zxcvbnm":     {},
	"asdfgh":      {},
	"sunshine":    {},
	"iloveyou":    {},
	"starwars":    {},
	"computer":    {},
	"freedom":     {},
	"princess":    {},
	"password1":   {},
	"password123": {},
	"passw0rd":    {},
	"admin":       {},
	"admin123":    {},
	"changeme":    {},
	"welcome":     {},
	"welcome1":    {},
	"qwerty123":   {},
	"p@ssw0rd":    {},
	"1q2w3e4r":    {},
	"abcd1234":    {},
}

func isCommonPassword(password string) bool {
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return true
	}
	return isSequentialPattern(password) || isRepeatingPattern(password)
}

// isSequentialPattern matches runs like "123456" or "fedcba".
func isSequentialPattern(s string) bool {
	runes := []rune(s)
	if len(runes) < 4 {
		return false
	}
	ascending, descending := true, true
	for i := 1; i < len(runes); i++ {
		diff := int(runes[i]) - int(runes[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	return ascending || descending
}

func isRepeatingPattern(s string) bool {
	if len(s) < 4 {
		return false
	}
	return strings.Count(s, s[:1]) == len(s)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address format.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
