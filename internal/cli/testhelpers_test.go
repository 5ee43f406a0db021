package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/mockview/mockviewd/internal/transcribe"
	"go.uber.org/zap"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

type fixedEngine struct {
	name string
	text string
	err  error
}

func (e *fixedEngine) Name() string { return e.name }

func (e *fixedEngine) Capabilities() transcribe.Capabilities {
	return transcribe.Capabilities{Language: true, Translate: true, ModelSize: true}
}

func (e *fixedEngine) Transcribe(context.Context, []byte, transcribe.Options) (transcribe.Transcription, error) {
	if e.err != nil {
		return transcribe.Transcription{}, e.err
	}
	return transcribe.Transcription{Text: e.text, Confidence: 0.9}, nil
}

func selectorFor(engine transcribe.Engine) func() *transcribe.Selector {
	return func() *transcribe.Selector {
		return transcribe.NewSelector(nil, []transcribe.Descriptor{{
			Name: engine.Name(),
			Load: func(*zap.Logger) (transcribe.Engine, error) { return engine, nil },
		}})
	}
}

func noEngineSelector() func() *transcribe.Selector {
	return func() *transcribe.Selector {
		return transcribe.NewSelector(nil, nil)
	}
}
