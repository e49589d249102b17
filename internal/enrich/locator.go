package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/geoenrich/internal/config"
	"github.com/agenthands/geoenrich/internal/llm"
	"go.uber.org/zap"
)

// UnknownLocation is written whenever a lookup fails or finds no location.
const UnknownLocation = "Unknown Location"

const noneReply = "None"

const alpha3Prompt = `Identify the country that the following research title refers to.
Title: "%s"
Answer with only the ISO 3166-1 alpha-3 country code (for example "DEU" for Germany or "BRA" for Brazil).
If the title does not mention or clearly imply a location, answer "None".
Do not explain your answer.`

const alpha2Prompt = `Identify the country that the following research title refers to.
Title: "%s"
Answer with only the ISO 3166-1 alpha-2 country code (for example "DE" for Germany or "BR" for Brazil).
If the title does not mention or clearly imply a location, answer "None".
Do not explain your answer.`

type Status int

const (
	// StatusResolved means the model named a location.
	StatusResolved Status = iota
	// StatusNoLocation means the model answered "None" or nothing.
	StatusNoLocation
	// StatusFailed means the inference call itself failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusNoLocation:
		return "no_location"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// LookupResult is the outcome of one location lookup.
type LookupResult struct {
	Status Status
	Value  string
	Err    error
}

// Location returns the value to store on the record. Anything but a
// resolved lookup collapses to UnknownLocation.
func (r LookupResult) Location() string {
	if r.Status == StatusResolved && r.Value != "" {
		return r.Value
	}
	return UnknownLocation
}

// Locator asks a language model for the country a title refers to.
type Locator struct {
	LLM      llm.LLMClient
	template string
	logger   *zap.Logger
}

func NewLocator(client llm.LLMClient, prompt config.PromptConfig, logger *zap.Logger) *Locator {
	template := prompt.Template
	if template == "" {
		template = alpha3Prompt
		if strings.EqualFold(prompt.ISOFormat, config.ISOAlpha2) {
			template = alpha2Prompt
		}
	}
	return &Locator{
		LLM:      client,
		template: template,
		logger:   logger,
	}
}

func (l *Locator) Prompt(title string) string {
	return fmt.Sprintf(l.template, title)
}

// Locate makes exactly one inference call. The reply is trimmed but not
// otherwise validated.
func (l *Locator) Locate(ctx context.Context, title string) LookupResult {
	prompt := l.Prompt(title)
	l.logger.Debug("sending prompt", zap.String("prompt", prompt))

	reply, err := l.LLM.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			l.logger.Warn("location lookup interrupted", zap.String("title", title))
			return LookupResult{Status: StatusFailed, Err: err}
		}
		l.logger.Error("location lookup failed", zap.String("title", title), zap.Error(err))
		return LookupResult{Status: StatusFailed, Err: err}
	}
	l.logger.Info("received reply", zap.String("reply", reply))

	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, noneReply) {
		return LookupResult{Status: StatusNoLocation}
	}
	return LookupResult{Status: StatusResolved, Value: reply}
}
