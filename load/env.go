package load

import (
	"log/slog"

	"github.com/gogpu/resman/asset"
	"github.com/gogpu/resman/decode"
)

// Env carries everything a Task needs from the outside world.
// It is copied into each task at construction.
type Env struct {
	Store asset.Store

	// Verifier checks signatures of protected models. Nil means ed25519.
	Verifier decode.Verifier

	// PublicKey verifies protected models. Without it every protected
	// model fails to load.
	PublicKey []byte

	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e Env) verifier() decode.Verifier {
	if e.Verifier == nil {
		return decode.Ed25519Verifier{}
	}
	return e.Verifier
}
