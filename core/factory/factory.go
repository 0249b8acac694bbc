package factory

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

var (
	// ErrUnknownType is returned by Create for a type with no factory.
	ErrUnknownType = errors.New("unknown module type")
	// ErrDuplicate is returned by Register when the type is already taken.
	ErrDuplicate = errors.New("module type already registered")
)

// ModuleConfig selects a module by type and carries its raw settings.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory builds a T from raw settings, usually through Decode.
type Factory[T any] func(conf map[string]any) (T, error)

// Registry maps module types to factories. It is safe for concurrent use.
type Registry[T any] struct {
	mu    sync.RWMutex
	byTyp map[string]Factory[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byTyp: map[string]Factory[T]{}}
}

// Register binds typ to f.
func (r *Registry[T]) Register(typ string, f Factory[T]) error {
	if typ == "" || f == nil {
		return fmt.Errorf("factory: register %q: empty type or nil factory", typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byTyp[typ]; taken {
		return fmt.Errorf("factory: %w: %s", ErrDuplicate, typ)
	}
	r.byTyp[typ] = f
	return nil
}

// MustRegister is Register for package init, where a failure is a
// programming error.
func (r *Registry[T]) MustRegister(typ string, f Factory[T]) {
	if err := r.Register(typ, f); err != nil {
		panic(err)
	}
}

// Types lists the registered types, sorted.
func (r *Registry[T]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byTyp))
	for typ := range r.byTyp {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}

// Create builds the module cfg selects.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	var zero T
	r.mu.RLock()
	f, ok := r.byTyp[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w %q (known: %v)", ErrUnknownType, cfg.Type, r.Types())
	}
	mod, err := f(cfg.Conf)
	if err != nil {
		return zero, fmt.Errorf("module %s: %w", cfg.Type, err)
	}
	return mod, nil
}

// CreateAll builds every module in order and stops at the first failure.
func (r *Registry[T]) CreateAll(cfgs []ModuleConfig) ([]T, error) {
	mods := make([]T, 0, len(cfgs))
	for i, cfg := range cfgs {
		mod, err := r.Create(cfg)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// Decode copies raw settings into out following json tags. Unknown keys are
// rejected. Values are weakly typed because env overrides arrive as strings,
// and strings such as "5s" decode into time.Duration.
func Decode(conf map[string]any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(conf)
}
