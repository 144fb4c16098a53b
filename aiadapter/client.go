// Package aiadapter drives automated seats by delegating each decision to
// a remote chat-completion endpoint, falling back to a deterministic safe
// play on any failure.
package aiadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"pokerserver/holdem"
)

// Decision is the adapter's answer to a seat's turn: an action label, an
// amount (meaningful only for bet/raise), and an optional free-text
// explanation surfaced for debugging, never trusted for control flow.
type Decision struct {
	Action      holdem.ActionType
	Amount      int64
	Explanation string
}

// Config configures a Client. URL, Model and APIKey come from the
// surrounding service's environment loading (out of scope here); the
// adapter only consumes the resolved values.
type Config struct {
	APIKey  string
	Model   string
	URL     string
	Timeout time.Duration
}

// Client is the adapter's HTTP implementation. It carries no per-decision
// state: ChooseAction is safe to call concurrently from multiple rooms.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
}

// New builds a Client. logger may be nil, in which case a new stderr
// logger with the "aiadapter" prefix is created for this Client.
func New(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "aiadapter"})
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rawDecision struct {
	Action      string `json:"action"`
	Amount      int64  `json:"amount"`
	Explanation string `json:"explanation"`
}

// ChooseAction asks the remote model for a decision given actx, and
// validates the answer against actx.LegalActions before returning it. Any
// failure — missing credentials, transport error, malformed reply, or an
// illegal action — is logged and silently replaced by the engine's
// deterministic fallback: check if legal, else call if affordable, else
// fold.
func (c *Client) ChooseAction(ctx context.Context, actx holdem.AIContext) Decision {
	if c.cfg.APIKey == "" {
		return c.fallback(actx, "missing API key")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    buildMessages(actx),
		Temperature: 0.2,
	})
	if err != nil {
		return c.fallback(actx, fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return c.fallback(actx, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fallback(actx, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fallback(actx, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode >= 300 {
		return c.fallback(actx, fmt.Sprintf("adapter endpoint returned %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Choices) == 0 {
		return c.fallback(actx, "malformed chat-completion envelope")
	}

	decision, err := parseDecision(parsed.Choices[0].Message.Content)
	if err != nil {
		return c.fallback(actx, fmt.Sprintf("parse decision: %v", err))
	}

	action, ok := holdem.ParseAction(decision.Action)
	if !ok || !legalActionAllowed(actx.LegalActions, decision.Action) {
		return c.fallback(actx, "illegal action suggested")
	}

	return Decision{Action: action, Amount: decision.Amount, Explanation: decision.Explanation}
}

func legalActionAllowed(legal []string, action string) bool {
	for _, l := range legal {
		if l == action {
			return true
		}
	}
	return false
}

// buildMessages formats the system/user prompt pair embedding the full
// decision context: hole cards, board, pot, stack, to-call, min-raise,
// phase, the last 12 action-log entries, and the legal-actions list.
func buildMessages(actx holdem.AIContext) []chatMessage {
	history := actx.RecentActions
	var lines []string
	for _, rec := range history {
		lines = append(lines, fmt.Sprintf("- %s -> %s (%d) during %s", rec.PlayerName, rec.Action, rec.Amount, rec.Phase))
	}
	historyText := "No actions yet."
	if len(lines) > 0 {
		historyText = strings.Join(lines, "\n")
	}

	board := "None"
	if len(actx.CommunityCards) > 0 {
		board = strings.Join(actx.CommunityCards, ", ")
	}
	cards := "Unknown"
	if len(actx.HoleCards) > 0 {
		cards = strings.Join(actx.HoleCards, ", ")
	}
	legal := strings.Join(actx.LegalActions, ", ")

	prompt := "You control a single seat in a No-Limit Texas Hold'em poker game. " +
		"Always return a single JSON object with fields action, amount, and explanation. " +
		"Allowed actions: fold, check, call, bet, raise. " +
		"For bet/raise set amount to the FINAL total bet size (chips in front of you after the action)." +
		"\nCommunity cards: " + board +
		"\nYour hole cards: " + cards +
		fmt.Sprintf("\nCurrent pot: %d | Stack: %d | To call: %d | Min raise: %d", actx.Pot, actx.Stack, actx.ToCall, actx.MinRaise) +
		"\nCurrent phase: " + actx.Phase +
		"\nAction history:\n" + historyText +
		"\nLegal actions right now: " + legal +
		"\nOnly output JSON like {\"action\":\"call\",\"amount\":0,\"explanation\":\"reason\"}."

	return []chatMessage{
		{Role: "system", Content: "You are a disciplined poker assistant. Always obey the betting rules."},
		{Role: "user", Content: prompt},
	}
}

// parseDecision extracts the outermost {...} span from free text and
// decodes it as a rawDecision.
func parseDecision(content string) (rawDecision, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return rawDecision{}, fmt.Errorf("no JSON object in response")
	}
	var d rawDecision
	if err := json.Unmarshal([]byte(content[start:end+1]), &d); err != nil {
		return rawDecision{}, err
	}
	d.Action = strings.ToLower(d.Action)
	return d, nil
}

func (c *Client) fallback(actx holdem.AIContext, reason string) Decision {
	c.logger.Warn("ai adapter falling back", "reason", reason, "player_id", actx.PlayerID)
	action, amount := deterministicFallback(actx)
	return Decision{Action: action, Amount: amount, Explanation: reason}
}

// deterministicFallback mirrors holdem.Hand.FallbackAction exactly, since
// the adapter must decide without access to a live Hand (only its
// snapshot).
func deterministicFallback(actx holdem.AIContext) (holdem.ActionType, int64) {
	if legalActionAllowed(actx.LegalActions, "check") {
		return holdem.ActionCheck, 0
	}
	if legalActionAllowed(actx.LegalActions, "call") && actx.Stack >= actx.ToCall {
		return holdem.ActionCall, 0
	}
	return holdem.ActionFold, 0
}
