package verify

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

var legal = model.DomainProfile{ID: model.DomainLegal, RiskWeight: 1.5, BlockThreshold: 0.7}

const scenarioA = "In the 2022 U.S. Supreme Court case Turner v. Cognivault, the court ruled that digital agents cannot be held liable for hallucinations."

func TestVerifier_DefaultRulesFlagFabricatedCase(t *testing.T) {
	v := NewVerifier(nil)

	claims := v.Verify(context.Background(), scenarioA, legal, nil)
	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim, got %d", len(claims))
	}
	c := claims[0]
	if !c.IsHallucination || c.Confidence != 0.95 || c.VerificationSource != "rule:legal-fabricated-turner" {
		t.Errorf("Unexpected claim verdict %+v", c)
	}
	if c.Degraded {
		t.Error("Expected a clean check")
	}
}

func TestVerifier_UnknownClaimIsUnverified(t *testing.T) {
	v := NewVerifier(nil)

	claims := v.Verify(context.Background(), "The committee published its annual report last spring.", legal, nil)
	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim, got %d", len(claims))
	}
	if claims[0].IsHallucination || claims[0].Confidence != 0 || claims[0].VerificationSource != model.SourceUnverified {
		t.Errorf("Expected unverified claim, got %+v", claims[0])
	}
}

func TestVerifier_FailuresDegrade(t *testing.T) {
	tests := []struct {
		name    string
		checker Checker
	}{
		{
			name: "error",
			checker: CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
				return model.Verdict{}, errors.New("backend down")
			}),
		},
		{
			name: "panic",
			checker: CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
				panic("boom")
			}),
		},
		{
			name: "NaN confidence",
			checker: CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
				return model.Verdict{IsHallucination: true, Confidence: math.NaN(), Source: "x"}, nil
			}),
		},
		{
			name: "confidence above one",
			checker: CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
				return model.Verdict{IsHallucination: true, Confidence: 1.7, Source: "x"}, nil
			}),
		},
		{
			name: "empty source",
			checker: CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
				return model.Verdict{IsHallucination: true, Confidence: 0.9}, nil
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.checker)
			claims := v.Verify(context.Background(), scenarioA, legal, nil)
			if len(claims) != 1 {
				t.Fatalf("Expected 1 claim, got %d", len(claims))
			}
			c := claims[0]
			if c.IsHallucination || c.Confidence != 0 || c.VerificationSource != model.SourceUnavailable || !c.Degraded {
				t.Errorf("Expected degraded claim, got %+v", c)
			}
			if c.Error == "" {
				t.Error("Expected failure detail on degraded claim")
			}
			if CountDegraded(claims) != 1 {
				t.Errorf("Expected 1 degraded claim, got %d", CountDegraded(claims))
			}
		})
	}
}

func TestVerifier_PassesDomainAndContext(t *testing.T) {
	var gotDomain model.DomainID
	var gotContext map[string]any

	checker := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		gotDomain = req.Domain.ID
		gotContext = req.Context
		return model.Unverified(), nil
	})

	v := NewVerifier(checker, WithConcurrency(1))
	v.Verify(context.Background(), "The court ruled for the plaintiff last year.", legal, map[string]any{"jurisdiction": "US"})

	if gotDomain != model.DomainLegal {
		t.Errorf("Expected legal domain, got %s", gotDomain)
	}
	if gotContext["jurisdiction"] != "US" {
		t.Errorf("Expected host context to pass through, got %v", gotContext)
	}
}

func TestVerifier_ConcurrencyBounded(t *testing.T) {
	var inFlight, peak atomic.Int32

	checker := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return model.Unverified(), nil
	})

	var text strings.Builder
	for _, year := range []string{"1901", "1902", "1903", "1904", "1905", "1906", "1907", "1908"} {
		text.WriteString("The bridge was rebuilt again in " + year + ". ")
	}

	v := NewVerifier(checker, WithConcurrency(2))
	claims := v.Verify(context.Background(), text.String(), legal, nil)

	if len(claims) != 8 {
		t.Fatalf("Expected 8 claims, got %d", len(claims))
	}
	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent checks, saw %d", peak.Load())
	}
}

func TestVerifier_PreservesClaimOrder(t *testing.T) {
	checker := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		if strings.Contains(req.Claim, "first") {
			time.Sleep(20 * time.Millisecond)
		}
		return model.Verdict{Confidence: 0.5, Source: "test"}, nil
	})

	text := "This is the first sentence of the text. This is the second sentence of the text."
	claims := NewVerifier(checker).Verify(context.Background(), text, legal, nil)

	if len(claims) != 2 || !strings.Contains(claims[0].Text, "first") {
		t.Fatalf("Expected claims in text order, got %+v", claims)
	}
}

func TestChain_FirstDecisiveVerdictWins(t *testing.T) {
	var calls []string
	named := func(name string, v model.Verdict, err error) Checker {
		return CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
			calls = append(calls, name)
			return v, err
		})
	}

	chain := NewChain(
		named("unverified", model.Unverified(), nil),
		nil,
		named("failing", model.Verdict{}, errors.New("down")),
		named("decisive", model.Verdict{IsHallucination: true, Confidence: 0.6, Source: "rule:x"}, nil),
		named("never", model.Verdict{Confidence: 1, Source: "rule:y"}, nil),
	)

	v, err := chain.Check(context.Background(), model.CheckRequest{Claim: "c"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if v.Source != "rule:x" {
		t.Errorf("Expected rule:x verdict, got %+v", v)
	}
	if strings.Join(calls, ",") != "unverified,failing,decisive" {
		t.Errorf("Unexpected call order %v", calls)
	}
}

func TestChain_AllFailedReturnsError(t *testing.T) {
	fail := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		return model.Verdict{}, errors.New("down")
	})
	malformed := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		return model.Verdict{Confidence: 2, Source: "x"}, nil
	})

	_, err := NewChain(fail, malformed).Check(context.Background(), model.CheckRequest{Claim: "c"})
	if err == nil {
		t.Fatal("Expected error when every checker failed")
	}
	if !errors.Is(err, ErrMalformedVerdict) {
		t.Errorf("Expected joined error to include ErrMalformedVerdict, got %v", err)
	}
}

func TestChain_FailureWithoutDecisiveVerdictReturnsError(t *testing.T) {
	noOpinion := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		return model.Unverified(), nil
	})
	llmDown := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		return model.Verdict{}, errors.New("llm down")
	})

	_, err := NewChain(DefaultRules(), NewChain(noOpinion, llmDown)).Check(context.Background(), model.CheckRequest{Claim: "The Hoover Dam was completed in 1936."})
	if err == nil || !strings.Contains(err.Error(), "llm down") {
		t.Fatalf("Expected the failure to surface, got %v", err)
	}
}

func TestChain_NoOpinion(t *testing.T) {
	v, err := NewChain(DefaultRules()).Check(context.Background(), model.CheckRequest{Claim: "Nothing to see here today."})
	if err != nil || v != model.Unverified() {
		t.Errorf("Expected unverified verdict, got %+v %v", v, err)
	}

	v, err = NewChain().Check(context.Background(), model.CheckRequest{Claim: "c"})
	if err != nil || v != model.Unverified() {
		t.Errorf("Expected empty chain to be unverified, got %+v %v", v, err)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		time.Sleep(200 * time.Millisecond)
		return model.Verdict{Confidence: 1, Source: "slow"}, nil
	})

	start := time.Now()
	_, err := WithTimeout(slow, 20*time.Millisecond).Check(context.Background(), model.CheckRequest{Claim: "c"})
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Error("Expected timeout to abandon a checker that ignores its context")
	}

	if WithTimeout(slow, 0) == nil {
		t.Error("Expected zero timeout to return the checker unchanged")
	}
}

func TestWithTimeout_RecoversPanic(t *testing.T) {
	panicky := CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		panic("kaboom")
	})

	_, err := WithTimeout(panicky, time.Second).Check(context.Background(), model.CheckRequest{Claim: "c"})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("Expected panic to surface as error, got %v", err)
	}
}
