package fuzzer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/natefinch/atomic"

	"github.com/funvibe/funfuzz/internal/value"
)

// Export DTOs: plain-data mirror of Results for JSON serialization.

type ioElementJSON struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Value  any    `json:"value"`
}

type testResultJSON struct {
	Input              []ioElementJSON `json:"input"`
	Output             []ioElementJSON `json:"output,omitempty"`
	Pinned             bool            `json:"pinned"`
	Exception          bool            `json:"exception"`
	ExceptionMessage   string          `json:"exceptionMessage,omitempty"`
	Timeout            bool            `json:"timeout"`
	ValidatorException bool            `json:"validatorException"`
	PassedImplicit     bool            `json:"passedImplicit"`
	PassedHuman        string          `json:"passedHuman,omitempty"`
	PassedValidator    string          `json:"passedValidator,omitempty"`
	PassedValidators   []bool          `json:"passedValidators,omitempty"`
	Expected           []ioElementJSON `json:"expectedOutput,omitempty"`
	ElapsedMs          float64         `json:"elapsedTime"`
	Category           string          `json:"category"`
}

type resultsJSON struct {
	RunID           string           `json:"runId"`
	Module          string           `json:"module"`
	Function        string           `json:"function"`
	Seed            string           `json:"seed"`
	StopReason      string           `json:"stopReason"`
	ElapsedMs       float64          `json:"elapsedTime"`
	InputsGenerated int              `json:"inputsGenerated"`
	DupesGenerated  int              `json:"dupesGenerated"`
	InputsSaved     int              `json:"inputsSaved"`
	Results         []testResultJSON `json:"results"`
}

func exportElements(elems []IoElement) []ioElementJSON {
	if elems == nil {
		return nil
	}
	out := make([]ioElementJSON, len(elems))
	for i, el := range elems {
		out[i] = ioElementJSON{Name: el.Name, Offset: el.Offset, Value: value.ToGo(el.Value)}
	}
	return out
}

func (r *Results) export() resultsJSON {
	out := resultsJSON{
		RunID:           r.RunID,
		Module:          r.Module,
		Function:        r.Function,
		Seed:            r.Seed,
		StopReason:      string(r.StopReason),
		ElapsedMs:       float64(r.Elapsed.Microseconds()) / 1000,
		InputsGenerated: r.InputsGenerated,
		DupesGenerated:  r.DupesGenerated,
		InputsSaved:     r.InputsSaved,
		Results:         make([]testResultJSON, len(r.Results)),
	}
	for i := range r.Results {
		tr := &r.Results[i]
		out.Results[i] = testResultJSON{
			Input:              exportElements(tr.Input),
			Output:             exportElements(tr.Output),
			Pinned:             tr.Pinned,
			Exception:          tr.Exception,
			ExceptionMessage:   tr.ExceptionMessage,
			Timeout:            tr.Timeout,
			ValidatorException: tr.ValidatorException,
			PassedImplicit:     tr.PassedImplicit,
			PassedHuman:        string(tr.PassedHuman),
			PassedValidator:    string(tr.PassedValidator),
			PassedValidators:   tr.PassedValidators,
			Expected:           exportElements(tr.Expected),
			ElapsedMs:          float64(tr.Elapsed.Microseconds()) / 1000,
			Category:           string(tr.Category),
		}
	}
	return out
}

// WriteJSON serializes the aggregate to path. The write is atomic so a
// failed export never leaves a truncated results file behind.
func (r *Results) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r.export(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
