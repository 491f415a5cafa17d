package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FastqListRow describes one sequencing readset. Values are not mutated
// after construction.
type FastqListRow struct {
	RGID         string `json:"rgid" yaml:"rgid"`
	RGLB         string `json:"rglb" yaml:"rglb"`
	RGSM         string `json:"rgsm" yaml:"rgsm"`
	Lane         int    `json:"lane" yaml:"lane"`
	RGCN         string `json:"rgcn,omitempty" yaml:"rgcn,omitempty"`
	RGDS         string `json:"rgds,omitempty" yaml:"rgds,omitempty"`
	RGDT         string `json:"rgdt,omitempty" yaml:"rgdt,omitempty"`
	RGPL         string `json:"rgpl,omitempty" yaml:"rgpl,omitempty"`
	Read1FileURI string `json:"read1FileUri" yaml:"read1FileUri"`
	Read2FileURI string `json:"read2FileUri,omitempty" yaml:"read2FileUri,omitempty"`
}

// Validate checks the required fields of the row.
func (r FastqListRow) Validate() error {
	var details []FieldError
	if _, _, _, err := splitRGID(r.RGID); err != nil {
		details = append(details, FieldError{Field: "rgid", Message: err.Error()})
	}
	if r.RGLB == "" {
		details = append(details, FieldError{Field: "rglb", Message: "required"})
	}
	if r.RGSM == "" {
		details = append(details, FieldError{Field: "rgsm", Message: "required"})
	}
	if r.Lane <= 0 {
		details = append(details, FieldError{Field: "lane", Message: "must be a positive integer"})
	}
	if r.Read1FileURI == "" {
		details = append(details, FieldError{Field: "read1FileUri", Message: "required"})
	}
	if len(details) > 0 {
		return NewValidationError(fmt.Sprintf("invalid fastq list row %q", r.RGID), details...)
	}
	return nil
}

// InstrumentRunID returns the instrument run id encoded in the rgid.
func (r FastqListRow) InstrumentRunID() (string, error) {
	_, _, runID, err := splitRGID(r.RGID)
	return runID, err
}

// FileURIs returns the row's read file URIs, skipping an absent read 2.
func (r FastqListRow) FileURIs() []string {
	if r.Read2FileURI == "" {
		return []string{r.Read1FileURI}
	}
	return []string{r.Read1FileURI, r.Read2FileURI}
}

// splitRGID parses <index>.<lane>.<instrumentRunId>. Instrument run ids
// never contain dots, so the last two separators delimit the fields.
func splitRGID(rgid string) (index string, lane int, instrumentRunID string, err error) {
	parts := strings.Split(rgid, ".")
	if len(parts) < 3 {
		return "", 0, "", fmt.Errorf("rgid %q is not in <index>.<lane>.<instrumentRunId> form", rgid)
	}
	n := len(parts)
	lane, err = strconv.Atoi(parts[n-2])
	if err != nil || lane <= 0 {
		return "", 0, "", fmt.Errorf("rgid %q has an invalid lane %q", rgid, parts[n-2])
	}
	index = strings.Join(parts[:n-2], ".")
	instrumentRunID = parts[n-1]
	if index == "" || instrumentRunID == "" {
		return "", 0, "", fmt.Errorf("rgid %q is not in <index>.<lane>.<instrumentRunId> form", rgid)
	}
	return index, lane, instrumentRunID, nil
}

// DecodeFastqListRows converts the generic fastqListRows value found in
// payload inputs into typed rows.
func DecodeFastqListRows(v any) ([]FastqListRow, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, NewValidationError("fastqListRows must be a list")
	}
	rows := make([]FastqListRow, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("fastqListRows[%d] must be an object", i))
		}
		row := FastqListRow{
			RGID:         stringField(m, "rgid"),
			RGLB:         stringField(m, "rglb"),
			RGSM:         stringField(m, "rgsm"),
			RGCN:         stringField(m, "rgcn"),
			RGDS:         stringField(m, "rgds"),
			RGDT:         stringField(m, "rgdt"),
			RGPL:         stringField(m, "rgpl"),
			Read1FileURI: stringField(m, "read1FileUri"),
			Read2FileURI: stringField(m, "read2FileUri"),
		}
		switch lane := m["lane"].(type) {
		case float64:
			row.Lane = int(lane)
		case int:
			row.Lane = lane
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
