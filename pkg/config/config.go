// Package config defines the tunables a cartridge container is created
// or opened with: initial/maximum size, compression and encryption
// choices, and the optional collaborators (policy evaluator, audit
// logger) described at the façade boundary.
//
// Grounded on pkg/vcfg's Options-struct-plus-defaults idiom
// (defaults.go) and its use of github.com/imdario/mergo for overlaying
// a partially populated struct onto a default one (merge.go); TOML
// struct tags follow vcfg.go's tagging convention even though, unlike a
// .vcfg file, Options is constructed programmatically far more often
// than loaded from disk.
package config

import (
	"github.com/cartridgeio/cartridge/pkg/elog"
	"github.com/cartridgeio/cartridge/pkg/page"
	"github.com/imdario/mergo"
)

// AuditLogger accepts one record per public façade operation.
type AuditLogger interface {
	Record(operation, path, outcome string, metadataJSON []byte)
}

// PolicyEvaluator is consulted by the façade before mutating operations
// when configured.
type PolicyEvaluator interface {
	Evaluate(action, path string, context map[string]string) (allow bool, err error)
}

// Options configures a cartridge container at creation or open time.
type Options struct {
	InitialBlocks int64 `toml:"initial_blocks,omitempty"`
	MaxBlocks     int64 `toml:"max_blocks,omitempty"`

	GrowthThresholdPercent uint32 `toml:"growth_threshold_percent,omitempty"`

	Compression page.Codec `toml:"compression,omitempty"`

	// EncryptionKey, if exactly 32 bytes, enables AES-256-GCM.
	EncryptionKey []byte `toml:"-"`

	// CacheCapacity is the number of content pages the page cache holds.
	CacheCapacity int `toml:"cache_capacity,omitempty"`

	Policy PolicyEvaluator `toml:"-"`
	Audit  AuditLogger     `toml:"-"`

	// Logger receives Debug/Info/Warn/Error calls for notable façade
	// events (creation, growth, policy denials). Defaults to a silent
	// discard logger; never nil.
	Logger elog.Logger `toml:"-"`
}

// Defaults returns the baseline Options every container starts from
// before functional options are applied.
func Defaults() Options {
	return Options{
		InitialBlocks:          3,
		MaxBlocks:              1 << 20, // 4 GiB at a 4096-byte block size
		GrowthThresholdPercent: 10,
		Compression:            page.CodecNone,
		CacheCapacity:          256,
		Logger:                 elog.Discard,
	}
}

// Option mutates an Options in place.
type Option func(*Options)

// WithInitialBlocks overrides the container's starting capacity.
func WithInitialBlocks(n int64) Option {
	return func(o *Options) { o.InitialBlocks = n }
}

// WithMaxBlocks overrides the ceiling the auto-grower refuses to pass.
func WithMaxBlocks(n int64) Option {
	return func(o *Options) { o.MaxBlocks = n }
}

// WithCompression selects the file-payload compression codec.
func WithCompression(c page.Codec) Option {
	return func(o *Options) { o.Compression = c }
}

// WithEncryptionKey enables AES-256-GCM with the given 32-byte key.
func WithEncryptionKey(key []byte) Option {
	return func(o *Options) { o.EncryptionKey = key }
}

// WithCacheCapacity overrides the ARC page cache's page budget.
func WithCacheCapacity(n int) Option {
	return func(o *Options) { o.CacheCapacity = n }
}

// WithPolicy attaches an access-policy evaluator.
func WithPolicy(p PolicyEvaluator) Option {
	return func(o *Options) { o.Policy = p }
}

// WithAuditLogger attaches an audit sink.
func WithAuditLogger(a AuditLogger) Option {
	return func(o *Options) { o.Audit = a }
}

// WithLogger attaches a diagnostic logger. Passing nil restores the
// default discard logger rather than leaving Logger nil, so callers
// never need a nil check before calling it.
func WithLogger(l elog.Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = elog.Discard
		}
		o.Logger = l
	}
}

// New builds Options by layering opts over Defaults().
func New(opts ...Option) Options {
	o := Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MergeOver overlays the non-zero fields of override onto a copy of
// base, following vcfg.Merge's mergo-based overlay idiom. Interfaces
// and byte slices are left untouched by mergo's zero-value detection
// rules, so EncryptionKey/Policy/Audit are merged explicitly.
func MergeOver(base, override Options) (Options, error) {
	result := base
	if err := mergo.Merge(&result, override, mergo.WithOverride); err != nil {
		return Options{}, err
	}
	if len(override.EncryptionKey) > 0 {
		result.EncryptionKey = override.EncryptionKey
	}
	if override.Policy != nil {
		result.Policy = override.Policy
	}
	if override.Audit != nil {
		result.Audit = override.Audit
	}
	if override.Logger != nil {
		result.Logger = override.Logger
	}
	return result, nil
}
