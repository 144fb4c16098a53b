package aiadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pokerserver/holdem"
)

func TestChooseActionMissingAPIKeyFallsBack(t *testing.T) {
	c := New(Config{}, nil)
	actx := holdem.AIContext{LegalActions: []string{"check", "bet"}, Stack: 100}
	d := c.ChooseAction(context.Background(), actx)
	if d.Action != holdem.ActionCheck {
		t.Fatalf("expected check fallback, got %v", d.Action)
	}
}

func TestChooseActionIllegalSuggestionFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Choices = make([]struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}, 1)
		resp.Choices[0].Message.Content = `{"action":"raise","amount":9999,"explanation":"go big"}`
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", Model: "m", URL: srv.URL}, nil)
	actx := holdem.AIContext{LegalActions: []string{"fold", "call"}, Stack: 50, ToCall: 20}
	d := c.ChooseAction(context.Background(), actx)
	if d.Action != holdem.ActionCall {
		t.Fatalf("expected call fallback for illegal raise suggestion, got %v", d.Action)
	}
}

func TestChooseActionAcceptsLegalSuggestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Choices = make([]struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}, 1)
		resp.Choices[0].Message.Content = "Here is my decision: {\"action\":\"call\",\"amount\":20,\"explanation\":\"pot odds\"} thanks"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", Model: "m", URL: srv.URL}, nil)
	actx := holdem.AIContext{LegalActions: []string{"fold", "call", "raise"}, Stack: 100, ToCall: 20}
	d := c.ChooseAction(context.Background(), actx)
	if d.Action != holdem.ActionCall {
		t.Fatalf("expected accepted call decision, got %v", d.Action)
	}
}

func TestParseDecisionExtractsOutermostObject(t *testing.T) {
	d, err := parseDecision(`some preamble {"action":"Fold","amount":0,"explanation":"weak hand"} trailing`)
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if d.Action != "fold" {
		t.Fatalf("expected lowercased action fold, got %q", d.Action)
	}
}

func TestParseDecisionNoObjectFails(t *testing.T) {
	if _, err := parseDecision("no json here"); err == nil {
		t.Fatalf("expected error for content with no JSON object")
	}
}

func TestDeterministicFallbackPrefersCheck(t *testing.T) {
	action, _ := deterministicFallback(holdem.AIContext{LegalActions: []string{"check", "bet"}})
	if action != holdem.ActionCheck {
		t.Fatalf("expected check, got %v", action)
	}
}

func TestDeterministicFallbackFoldsWhenCallUnaffordable(t *testing.T) {
	action, _ := deterministicFallback(holdem.AIContext{LegalActions: []string{"fold", "call"}, Stack: 5, ToCall: 20})
	if action != holdem.ActionFold {
		t.Fatalf("expected fold when stack < to_call, got %v", action)
	}
}
