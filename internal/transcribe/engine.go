package transcribe

import "context"

// Options carries the optional tuning parameters a caller may request.
// Engines differ in what they honor; see Capabilities.
type Options struct {
	Language           string
	TranslateToEnglish bool
	ModelSize          string
}

// Capabilities declares which optional parameters an engine understands.
// Unsupported parameters are dropped before the engine is invoked instead
// of being rejected at call time.
type Capabilities struct {
	Language  bool
	Translate bool
	ModelSize bool
}

// Filter returns a copy of opts with every unsupported parameter zeroed.
func (c Capabilities) Filter(opts Options) Options {
	if !c.Language {
		opts.Language = ""
	}
	if !c.Translate {
		opts.TranslateToEnglish = false
	}
	if !c.ModelSize {
		opts.ModelSize = ""
	}
	return opts
}

// Transcription is a successful engine invocation.
type Transcription struct {
	Text       string
	Confidence float64
}

// Engine is one opaque speech-to-text capability. Implementations receive
// the raw uploaded clip bytes and handle their own audio extraction.
type Engine interface {
	Name() string
	Capabilities() Capabilities
	Transcribe(ctx context.Context, media []byte, opts Options) (Transcription, error)
}
