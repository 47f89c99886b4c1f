package genres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/storyarc/internal/services"
	"github.com/jwebster45206/storyarc/pkg/parser"
	"github.com/jwebster45206/storyarc/pkg/prompts"
	"github.com/jwebster45206/storyarc/pkg/story"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
	DefaultBackoffBase = time.Second

	// A salvaged response must have at least this much prose and one real
	// choice to be worth keeping.
	minSalvageContent = 20
	minSalvageChoices = 1
)

// LadderConfig tunes retries and generation parameters.
type LadderConfig struct {
	MaxAttempts int
	// RetryDelay is the fixed wait after a parse failure.
	RetryDelay time.Duration
	// BackoffBase scales transient-error backoff: base * 2^attempt.
	BackoffBase time.Duration
	MaxTokens   int
	Temperature float64
}

// DefaultLadderConfig returns the production settings.
func DefaultLadderConfig() LadderConfig {
	return LadderConfig{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		BackoffBase: DefaultBackoffBase,
		MaxTokens:   services.DefaultMaxTokens,
		Temperature: services.DefaultTemperature,
	}
}

// Ladder runs retry, salvage and fallback for every controller.
type Ladder struct {
	gen    services.TextGenerator
	parser *parser.Parser
	cfg    LadderConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewLadder creates a ladder. A nil parser uses the default cascade.
func NewLadder(gen services.TextGenerator, p *parser.Parser, cfg LadderConfig, logger *slog.Logger) *Ladder {
	if p == nil {
		p = parser.New()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ladder{
		gen:    gen,
		parser: p,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("github.com/jwebster45206/storyarc/internal/genres"),
	}
}

// Config returns the ladder settings.
func (l *Ladder) Config() LadderConfig {
	return l.cfg
}

// Run produces a chapter. Errors are returned only for invalid requests,
// non-transient generation failures and context cancellation; every other
// failure ends in salvage or fallback content.
func (l *Ladder) Run(ctx context.Context, voice prompts.Voice, flavor Flavor, req Request) (*Result, error) {
	ctx, span := l.tracer.Start(ctx, "genres.Ladder.Run", trace.WithAttributes(
		attribute.String("story.setting", req.Memory.Setting),
		attribute.String("genres.flavor", string(flavor)),
		attribute.Bool("genres.continuation", req.SelectedChoice != ""),
	))
	defer span.End()

	var (
		attempts int
		lastRaw  string
		lastErr  error
	)

	operation := func() (*parser.Result, error) {
		attempts++
		// Retries after a parse failure get a stripped-down prompt.
		simplified := attempts > 1 && errors.Is(lastErr, parser.ErrParseFailure)

		p, err := l.builder(voice, req).Simplified(simplified).Build()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to build prompt: %w", err))
		}

		raw, err := l.gen.Generate(ctx, services.GenerationRequest{
			SystemPrompt: p.System,
			UserPrompt:   p.User,
			MaxTokens:    l.cfg.MaxTokens,
			Temperature:  l.cfg.Temperature,
		})
		if err != nil {
			lastErr = err
			if !services.IsTransient(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, &backoff.RetryAfterError{Duration: l.cfg.BackoffBase << attempts}
		}
		lastRaw = raw

		res, err := l.parser.Parse(raw, parser.Strict)
		if err != nil {
			lastErr = err
			return nil, &backoff.RetryAfterError{Duration: l.cfg.RetryDelay}
		}
		return res, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(uint(l.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(_ error, next time.Duration) {
			l.logger.Warn("Generation attempt failed, retrying",
				"attempt", attempts,
				"max_attempts", l.cfg.MaxAttempts,
				"delay", next,
				"error", lastErr)
		}),
	)
	span.SetAttributes(attribute.Int("genres.attempts", attempts))

	if err == nil {
		span.SetAttributes(attribute.String("genres.source", string(story.SourceGenerated)))
		return &Result{
			Content:  res.Content,
			Choices:  res.Choices,
			Raw:      lastRaw,
			Source:   story.SourceGenerated,
			Attempts: attempts,
		}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, "cancelled")
		return nil, ctxErr
	}
	if lastErr != nil && !errors.Is(lastErr, parser.ErrParseFailure) && !services.IsTransient(lastErr) {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "generation failed")
		return nil, lastErr
	}
	if lastErr == nil {
		// Prompt construction failed.
		var pe *backoff.PermanentError
		if errors.As(err, &pe) {
			err = pe.Unwrap()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	if out, ok := l.salvage(lastRaw); ok {
		out.Attempts = attempts
		l.logger.Info("Salvaged generation after failed attempts",
			"attempts", attempts,
			"last_error", lastErr)
		span.SetAttributes(attribute.String("genres.source", string(story.SourceSalvaged)))
		return out, nil
	}

	out := l.fallback(flavor, req)
	out.Attempts = attempts
	l.logger.Warn("Using contextual fallback",
		"attempts", attempts,
		"category", Categorize(req.SelectedChoice),
		"flavor", flavor,
		"last_error", lastErr)
	span.SetAttributes(attribute.String("genres.source", string(story.SourceFallback)))
	return out, nil
}

func (l *Ladder) builder(voice prompts.Voice, req Request) *prompts.Builder {
	b := prompts.New().
		WithVoice(voice).
		WithMemory(req.Memory).
		WithStyle(req.Tone, req.Complexity).
		WithDirective(req.Directive)
	if req.SelectedChoice != "" {
		b = b.WithPrevious(req.PreviousContent, req.SelectedChoice)
	}
	return b
}

// salvage runs the lenient parser over the last response.
func (l *Ladder) salvage(raw string) (*Result, bool) {
	if raw == "" {
		return nil, false
	}
	res, _ := l.parser.Parse(raw, parser.Lenient)
	if res.RealChoices < minSalvageChoices || utf8.RuneCountInString(res.Content) < minSalvageContent {
		return nil, false
	}
	return &Result{
		Content: res.Content,
		Choices: res.Choices,
		Raw:     raw,
		Source:  story.SourceSalvaged,
	}, true
}

func (l *Ladder) fallback(flavor Flavor, req Request) *Result {
	var content string
	var choices []string
	if req.SelectedChoice == "" {
		content, choices = OpeningFallback(flavor, req.Memory.CharacterName, req.Memory.CharacterOrigin)
	} else {
		content, choices = ContextualFallback(flavor, req.Memory.CharacterName, req.SelectedChoice)
	}
	return &Result{
		Content: content,
		Choices: choices,
		Source:  story.SourceFallback,
	}
}
