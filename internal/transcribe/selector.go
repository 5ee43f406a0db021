package transcribe

import (
	"sync"

	"go.uber.org/zap"
)

// NoEngineName is reported while no engine could be bound.
const NoEngineName = "None"

// Descriptor names one engine candidate and how to load it. Load returns an
// error when the engine's dependency or credentials are missing; that is an
// expected outcome, not a failure.
type Descriptor struct {
	Name string
	Load func(logger *zap.Logger) (Engine, error)
}

// Selector binds to the first loadable engine from a priority-ordered
// candidate list. Binding happens lazily on the first query and is
// permanent for the process lifetime: a bound engine that starts failing at
// call time is never re-selected, and an empty probe result is never
// retried.
type Selector struct {
	once       sync.Once
	candidates []Descriptor
	logger     *zap.Logger

	engine Engine
}

// NewSelector creates an unbound selector over the given candidates.
func NewSelector(logger *zap.Logger, candidates []Descriptor) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{candidates: candidates, logger: logger}
}

// DefaultDescriptors lists the supported engines in priority order:
// the free local whisper binary first, then the hosted APIs.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "Whisper Local", Load: loadWhisperEngine},
		{Name: "OpenAI Whisper API", Load: loadOpenAIEngine},
		{Name: "Google Speech-to-Text", Load: loadGoogleSpeechEngine},
	}
}

func (s *Selector) bind() {
	s.once.Do(func() {
		for _, candidate := range s.candidates {
			engine, err := candidate.Load(s.logger)
			if err != nil {
				s.logger.Debug("transcription engine unavailable",
					zap.String("engine", candidate.Name),
					zap.Error(err))
				continue
			}
			s.engine = engine
			s.logger.Info("transcription engine selected", zap.String("engine", engine.Name()))
			return
		}
		s.logger.Warn("no transcription engine available; transcription will be skipped")
	})
}

// Available reports whether an engine is bound, probing on first call.
func (s *Selector) Available() bool {
	s.bind()
	return s.engine != nil
}

// EngineName returns the bound engine's name, or NoEngineName.
func (s *Selector) EngineName() string {
	s.bind()
	if s.engine == nil {
		return NoEngineName
	}
	return s.engine.Name()
}

// Engine returns the bound engine, or false when none could be loaded.
func (s *Selector) Engine() (Engine, bool) {
	s.bind()
	if s.engine == nil {
		return nil, false
	}
	return s.engine, true
}
