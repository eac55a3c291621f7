package hashids

import (
	"errors"
	"fmt"

	gohashids "github.com/speps/go-hashids/v2"
)

// DefaultAlphabet is the 62-symbol alphabet used when none is configured.
const DefaultAlphabet = gohashids.DefaultAlphabet

var (
	// ErrConfig is returned when an encoder configuration is invalid or conflicting.
	ErrConfig = errors.New("hashids: invalid configuration")
	// ErrDecode is returned when a string does not decode to any integer.
	ErrDecode = errors.New("hashids: cannot decode value")
)

// Encoder is a deterministic, keyed and reversible transform between
// non-negative integers and opaque strings.
//
// Implementations must be safe for concurrent use and Decode must never panic,
// whatever the input.
type Encoder interface {
	Encode(n int64) (string, error)
	Decode(s string) ([]int64, error)
}

// Config holds the named parameters of an encoder.
type Config struct {
	Salt      string
	MinLength int
	Alphabet  string
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Salt:      "",
		MinLength: 0,
		Alphabet:  DefaultAlphabet,
	}
}

// hashID adapts the go-hashids transform to Encoder. It holds no mutable state.
type hashID struct {
	h   *gohashids.HashID
	cfg Config
}

// New builds an Encoder from cfg.
func New(cfg Config) (Encoder, error) {
	if cfg.MinLength < 0 {
		return nil, fmt.Errorf("%w: min_length must be >= 0, got %d", ErrConfig, cfg.MinLength)
	}
	if cfg.Alphabet == "" {
		cfg.Alphabet = DefaultAlphabet
	}

	data := gohashids.NewData()
	data.Salt = cfg.Salt
	data.MinLength = cfg.MinLength
	data.Alphabet = cfg.Alphabet

	h, err := gohashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &hashID{h: h, cfg: cfg}, nil
}

// MustNew is like New but panics on error. Intended for package-level encoders.
func MustNew(cfg Config) Encoder {
	e, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *hashID) Encode(n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("hashids: cannot encode negative value %d", n)
	}
	return e.h.EncodeInt64([]int64{n})
}

func (e *hashID) Decode(s string) (nums []int64, err error) {
	if s == "" {
		return nil, ErrDecode
	}
	defer func() {
		if r := recover(); r != nil {
			nums, err = nil, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	nums, err = e.h.DecodeInt64WithError(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(nums) == 0 {
		return nil, ErrDecode
	}
	return nums, nil
}

// String describes the encoder without revealing its salt.
func (e *hashID) String() string {
	return fmt.Sprintf("hashids(min_length=%d, alphabet=%d symbols)", e.cfg.MinLength, len(e.cfg.Alphabet))
}

// DecodeOne decodes s and returns the first integer it carries.
// ok is false when no integer is produced, whatever the reason.
func DecodeOne(e Encoder, s string) (n int64, ok bool) {
	nums, err := e.Decode(s)
	if err != nil || len(nums) == 0 {
		return 0, false
	}
	return nums[0], true
}

// Describe names e for log lines. Encoders that are not fmt.Stringer are
// reported by type only, so a custom encoder never leaks its key material.
func Describe(e Encoder) string {
	if s, ok := e.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", e)
}
