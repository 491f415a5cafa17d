package model

import "fmt"

// Relative output locations written by the TSO500 ctDNA pipeline.
const (
	ResultsDirPrefix         = "Results/"
	NextflowLogsRelPath      = "TSO500_Nextflow_Logs/"
	LogsIntermediatesRelPath = "Logs_Intermediates/"
	SamplePairIDsInputKey    = "sample_pair_ids"
)

// OutputPaths are the result locations, relative to the run's output URI.
type OutputPaths struct {
	SampleResultsDirRelPath   string `json:"sampleResultsDirRelPath"`
	Tso500NextflowLogsRelPath string `json:"tso500NextflowLogsRelPath"`
	LogsIntermediatesRelPath  string `json:"LogsIntermediatesRelPath"`
}

// RunOutputs is either "no outputs" (the zero value) or a set of output
// paths.
type RunOutputs struct {
	Available bool
	Paths     OutputPaths
}

// NoOutputs is the explicit "no outputs" variant.
var NoOutputs = RunOutputs{}

// DeriveOutputs computes the outputs for a run reaching status, from the
// execution service's declared inputs. Only SUCCEEDED runs have outputs.
// A SUCCEEDED run without any sample pair id is a validation error.
func DeriveOutputs(status WorkflowStatus, inputs map[string]any) (RunOutputs, error) {
	if status != StatusSucceeded {
		return NoOutputs, nil
	}

	samplePairIDs, err := stringList(inputs[SamplePairIDsInputKey])
	if err != nil {
		return NoOutputs, NewValidationError("cannot derive outputs",
			FieldError{Field: "inputs." + SamplePairIDsInputKey, Message: err.Error()})
	}
	if len(samplePairIDs) == 0 || samplePairIDs[0] == "" {
		return NoOutputs, NewValidationError("cannot derive outputs",
			FieldError{Field: "inputs." + SamplePairIDsInputKey, Message: "at least one sample pair id is required for a succeeded run"})
	}

	return RunOutputs{
		Available: true,
		Paths: OutputPaths{
			SampleResultsDirRelPath:   ResultsDirPrefix + samplePairIDs[0] + "/",
			Tso500NextflowLogsRelPath: NextflowLogsRelPath,
			LogsIntermediatesRelPath:  LogsIntermediatesRelPath,
		},
	}, nil
}

// Apply returns a copy of data with the outputs key set, or removed for
// the "no outputs" variant.
func (o RunOutputs) Apply(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if !o.Available {
		delete(out, DataKeyOutputs)
		return out
	}
	out[DataKeyOutputs] = map[string]any{
		"sampleResultsDirRelPath":   o.Paths.SampleResultsDirRelPath,
		"tso500NextflowLogsRelPath": o.Paths.Tso500NextflowLogsRelPath,
		"LogsIntermediatesRelPath":  o.Paths.LogsIntermediatesRelPath,
	}
	return out
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, expected string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
}
