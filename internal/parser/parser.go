// Package parser turns raw planner output into executable plans. It never
// fails outright: malformed output degrades to a keyword guess and, as a last
// resort, a diagnostic screenshot.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/llmutil"
)

// Mode records which decoding stage produced a result.
type Mode string

const (
	ModeStrict   Mode = "strict"
	ModeLenient  Mode = "lenient"
	ModeKeyword  Mode = "keyword"
	ModeFallback Mode = "fallback"
)

var (
	// ErrEmptyPlan is returned when a plan decodes but carries no usable action.
	ErrEmptyPlan = errors.New("plan contains no actions")
	// ErrNoAction is returned when a model turn carries no usable action.
	ErrNoAction = errors.New("model response contains no action")
)

// Parser decodes planner responses.
type Parser struct {
	logger *zap.Logger
}

// New creates a parser.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("parser")}
}

// Parse converts a planner response into a CommandResult. Decoding is tried
// strictly, then leniently, then by keyword. Every decoded plan goes through
// Repair before it is returned.
func (p *Parser) Parse(raw string) action.CommandResult {
	res, _ := p.ParseWithMode(raw)
	return res
}

// ParseWithMode is Parse, additionally reporting which stage succeeded.
func (p *Parser) ParseWithMode(raw string) (action.CommandResult, Mode) {
	res, err := p.decodePlan(raw, true)
	if err == nil {
		return res, ModeStrict
	}
	p.logger.Debug("Strict plan decode failed, trying lenient mode.", zap.Error(err))

	res, err = p.decodePlan(raw, false)
	if err == nil {
		return res, ModeLenient
	}
	p.logger.Warn("Lenient plan decode failed, falling back to keywords.",
		zap.Error(err),
		zap.String("raw_response", llmutil.Truncate(raw, 200)))

	if res, ok := keywordFallback(raw); ok {
		return res, ModeKeyword
	}
	return action.FallbackResult("could not understand planner response"), ModeFallback
}

func (p *Parser) decodePlan(raw string, strict bool) (action.CommandResult, error) {
	var (
		plan *action.WirePlan
		err  error
	)
	if strict {
		plan, err = llmutil.DecodeStrict[action.WirePlan](raw)
	} else {
		plan, err = llmutil.DecodeLenient[action.WirePlan](raw)
	}
	if err != nil {
		return action.CommandResult{}, err
	}

	actions := make([]action.Action, 0, len(plan.Actions))
	for i, w := range plan.Actions {
		act, err := action.FromWire(w, strict)
		if err != nil {
			if strict {
				return action.CommandResult{}, fmt.Errorf("action %d: %w", i, err)
			}
			p.logger.Warn("Dropping invalid action from plan.", zap.Int("index", i), zap.String("type", w.Type), zap.Error(err))
			continue
		}
		actions = append(actions, act)
	}
	if len(actions) == 0 {
		return action.CommandResult{}, ErrEmptyPlan
	}

	success := true
	if plan.Success != nil {
		success = *plan.Success
	}
	return action.CommandResult{
		Success: success,
		Message: plan.Message,
		Actions: Repair(action.Sequence{Description: plan.Description, Actions: actions}),
		Source:  action.SourcePlanner,
	}, nil
}

// keywordFallback guesses a plan from words in an undecodable response.
func keywordFallback(raw string) (action.CommandResult, bool) {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "screenshot"):
		return action.CommandResult{
			Success: true,
			Message: "interpreted as screenshot request",
			Actions: action.NewSequence("screenshot", action.Screenshot{}),
			Source:  action.SourcePlanner,
		}, true
	case strings.Contains(lower, "browser"), strings.Contains(lower, "website"):
		return action.CommandResult{
			Success: true,
			Message: "interpreted as browser request",
			Actions: action.NewSequence("open browser",
				action.GoHome{}, action.Wait{Milliseconds: 300}, action.OpenApp{PackageID: "browser"}),
			Source: action.SourcePlanner,
		}, true
	}
	return action.CommandResult{}, false
}

// ParseModelResponse decodes a single agent turn. Both the full envelope
// {"action": {...}, "reasoning": ...} and a bare action object are accepted.
func (p *Parser) ParseModelResponse(raw string) (action.ModelResponse, error) {
	resp, err := p.decodeTurn(raw, true)
	if err == nil {
		return resp, nil
	}
	p.logger.Debug("Strict turn decode failed, trying lenient mode.", zap.Error(err))

	resp, err = p.decodeTurn(raw, false)
	if err != nil {
		p.logger.Warn("Failed to parse model turn.", zap.Error(err), zap.String("raw_response", llmutil.Truncate(raw, 200)))
		return action.ModelResponse{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	return resp, nil
}

func (p *Parser) decodeTurn(raw string, strict bool) (action.ModelResponse, error) {
	decode := llmutil.DecodeLenient[action.WireTurn]
	decodeBare := llmutil.DecodeLenient[action.WireAction]
	if strict {
		decode = llmutil.DecodeStrict[action.WireTurn]
		decodeBare = llmutil.DecodeStrict[action.WireAction]
	}

	turn, err := decode(raw)
	if err != nil {
		return action.ModelResponse{}, err
	}
	wire := turn.Action
	if wire == nil {
		// A bare action object has a type at top level.
		bare, err := decodeBare(raw)
		if err != nil || bare.Type == "" {
			return action.ModelResponse{}, ErrNoAction
		}
		wire = bare
	}

	act, err := action.FromWire(*wire, strict)
	if err != nil {
		return action.ModelResponse{}, err
	}
	return action.ModelResponse{
		Action:             act,
		Reasoning:          turn.Reasoning,
		Confidence:         turn.Confidence,
		RequiresScreenshot: turn.RequiresScreenshot,
	}, nil
}
