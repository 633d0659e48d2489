package explain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"impulse-sim/internal/logging"
	"impulse-sim/internal/waveform"
)

func TestPrompt(t *testing.T) {
	p := waveform.DefaultParameters()
	r := waveform.Result{PeakVoltage: 399.031, FrontTime: 0, TailTime: 350}
	got, err := Prompt(p, r)
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	for _, want := range []string{
		"- Number of Stages: 4",
		"- Charging Voltage per Stage: 100 kV",
		"- Stage Capacitance (per stage): 500 nF",
		"- Load Capacitance: 2000 pF",
		"- Front Shaping Resistor (R1): 75 Ω",
		"- Tail Shaping Resistor (R2): 4000 Ω",
		"- Peak Voltage: 399.03 kV",
		"- Front Time (T1): 0.00 µs",
		"- Tail Time (T2): 350.00 µs",
		"total charging voltage (400 kV)",
		"Do not use markdown code blocks.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

type fakeModels struct {
	model  string
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiExplainer(t *testing.T) {
	fake := &fakeModels{resp: textResponse("The waveform ", "is non-standard.")}
	g := newGeminiExplainer(fake, "", logging.Discard())
	got, err := g.Explain(context.Background(), waveform.DefaultParameters(), waveform.Result{PeakVoltage: 399})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "The waveform is non-standard." {
		t.Errorf("unexpected text %q", got)
	}
	if fake.model != DefaultModel {
		t.Errorf("model = %q", fake.model)
	}
	if !strings.Contains(fake.prompt, "Marx impulse generator") {
		t.Errorf("prompt not sent: %q", fake.prompt)
	}
}

func TestGeminiExplainerFailures(t *testing.T) {
	cases := map[string]*fakeModels{
		"transport": {err: errors.New("connection refused")},
		"empty":     {resp: &genai.GenerateContentResponse{}},
		"blank":     {resp: textResponse("  ")},
	}
	for name, fake := range cases {
		t.Run(name, func(t *testing.T) {
			g := newGeminiExplainer(fake, "gemini-test", logging.Discard())
			_, err := g.Explain(context.Background(), waveform.DefaultParameters(), waveform.Result{})
			if !errors.Is(err, ErrCommunication) {
				t.Fatalf("expected ErrCommunication, got %v", err)
			}
		})
	}
}

func TestNewGeminiExplainerRequiresKey(t *testing.T) {
	if _, err := NewGeminiExplainer(context.Background(), "", "", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFuncAdapter(t *testing.T) {
	var e Explainer = Func(func(ctx context.Context, p waveform.Parameters, r waveform.Result) (string, error) {
		return "ok", nil
	})
	if got, _ := e.Explain(context.Background(), waveform.Parameters{}, waveform.Result{}); got != "ok" {
		t.Fatalf("got %q", got)
	}
}
