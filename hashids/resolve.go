package hashids

import (
	"fmt"
	"sync"
)

// Options are the per-field encoder parameters of a declaration.
// Nil pointers mean "not supplied". Encoder is a pre-built instance and is
// mutually exclusive with every named parameter.
type Options struct {
	Salt      *string
	MinLength *int
	Alphabet  *string
	Encoder   Encoder
}

// HasNamed reports whether any named parameter was supplied.
func (o Options) HasNamed() bool {
	return o.Salt != nil || o.MinLength != nil || o.Alphabet != nil
}

// Resolve produces the Encoder for a field declaration. Named parameters
// override defaults one by one; a pre-built Encoder is returned unchanged.
func Resolve(opts Options, defaults Config) (Encoder, error) {
	if opts.Encoder != nil {
		if opts.HasNamed() {
			return nil, fmt.Errorf("%w: an encoder instance cannot be combined with salt, min_length or alphabet", ErrConfig)
		}
		return opts.Encoder, nil
	}

	cfg := defaults
	if opts.Salt != nil {
		cfg.Salt = *opts.Salt
	}
	if opts.MinLength != nil {
		cfg.MinLength = *opts.MinLength
	}
	if opts.Alphabet != nil {
		cfg.Alphabet = *opts.Alphabet
	}
	return New(cfg)
}

var (
	mu       sync.RWMutex
	defaults = DefaultConfig()
	registry = make(map[string]Encoder)
)

// SetDefaults replaces the process-wide defaults. Models parsed earlier keep
// the encoder they resolved at parse time.
func SetDefaults(cfg Config) {
	if cfg.Alphabet == "" {
		cfg.Alphabet = DefaultAlphabet
	}
	mu.Lock()
	defaults = cfg
	mu.Unlock()
}

// Defaults returns the current process-wide defaults.
func Defaults() Config {
	mu.RLock()
	defer mu.RUnlock()
	return defaults
}

// Register makes a pre-built encoder available to declarations under name.
// Registering a nil encoder removes the name.
func Register(name string, e Encoder) {
	mu.Lock()
	defer mu.Unlock()
	if e == nil {
		delete(registry, name)
		return
	}
	registry[name] = e
}

// Lookup returns the encoder registered under name.
func Lookup(name string) (Encoder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[name]
	return e, ok
}
