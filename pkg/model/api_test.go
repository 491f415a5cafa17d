package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		name  string
		input ListOptions
		want  ListOptions
	}{
		{"defaults", DefaultListOptions(), ListOptions{Limit: 20}},
		{"zero limit", ListOptions{}, ListOptions{Limit: 20}},
		{"negative limit", ListOptions{Limit: -5}, ListOptions{Limit: 20}},
		{"over max", ListOptions{Limit: 200}, ListOptions{Limit: 100}},
		{"negative offset", ListOptions{Limit: 10, Offset: -3}, ListOptions{Limit: 10}},
		{"status kept", ListOptions{Limit: 50, Offset: 10, Status: "READY"}, ListOptions{Limit: 50, Offset: 10, Status: "READY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input
			got.Clamp()
			if got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResponse_OmitsEmptyPagination(t *testing.T) {
	data, err := json.Marshal(Response{
		Status:    "ok",
		RequestID: "req_1234abcd",
		Data:      ValidationResult{IsValid: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if strings.Contains(s, "pagination") {
		t.Errorf("pagination should be omitted: %s", s)
	}
	if !strings.Contains(s, `"data":{"isValid":true}`) || !strings.Contains(s, `"error":null`) {
		t.Errorf("unexpected envelope: %s", s)
	}
}
