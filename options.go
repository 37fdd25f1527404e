package resman

import (
	"log/slog"

	"github.com/gogpu/resman/decode"
)

// Default fallback paths.
const (
	DefaultMissingTexture = "_asset/image/missing_tex.png"
	DefaultMissingModel   = "_asset/model/missing_model.dmd"
)

// Option configures a Manager during creation.
//
// Example:
//
//	m := resman.New(store, s,
//	    resman.WithPublicKey(key),
//	    resman.WithLogger(slog.Default()),
//	)
type Option func(*options)

// options holds optional configuration for a Manager.
type options struct {
	verifier       decode.Verifier
	publicKey      []byte
	logger         *slog.Logger
	missingTexture string
	missingModel   string
}

// defaultOptions returns the default Manager options.
func defaultOptions() options {
	return options{
		verifier:       decode.Ed25519Verifier{},
		logger:         Logger(),
		missingTexture: DefaultMissingTexture,
		missingModel:   DefaultMissingModel,
	}
}

// WithVerifier sets the signature verifier for protected models.
func WithVerifier(v decode.Verifier) Option {
	return func(o *options) {
		if v != nil {
			o.verifier = v
		}
	}
}

// WithPublicKey sets the key protected models are verified against.
// Without one, every model under _asset fails to load.
func WithPublicKey(key []byte) Option {
	return func(o *options) {
		o.publicKey = key
	}
}

// WithLogger sets the logger for the Manager and its loads.
// Nil keeps the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFallbacks overrides the paths of the fallback texture and model.
// Empty strings keep the defaults.
func WithFallbacks(texture, model string) Option {
	return func(o *options) {
		if texture != "" {
			o.missingTexture = texture
		}
		if model != "" {
			o.missingModel = model
		}
	}
}
