package registry

import (
	"errors"
	"testing"
)

func TestAnnotation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ann     Annotation
		wantErr bool
	}{
		{"valid", Annotation{Key: "Retries", Document: "settings.toml"}, false},
		{"with section", Annotation{Key: "burst", Document: "settings.toml", Section: "limits.api"}, false},
		{"empty key", Annotation{Document: "settings.toml"}, true},
		{"empty document", Annotation{Key: "Retries"}, true},
		{"blank document", Annotation{Key: "Retries", Document: "  "}, true},
		{"empty section part", Annotation{Key: "k", Document: "d.toml", Section: "a..b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ann.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAnnotation) {
				t.Errorf("error %v does not wrap ErrInvalidAnnotation", err)
			}
		})
	}
}

func TestAnnotation_Target(t *testing.T) {
	root := Annotation{Key: "Retries", Document: "settings.toml"}
	if got := root.Target().String(); got != "settings.toml:Retries" {
		t.Errorf("root target = %q", got)
	}

	nested := Annotation{Key: "burst", Document: "settings.toml", Section: "limits.api"}
	if got := nested.Target().String(); got != "settings.toml:limits.api.burst" {
		t.Errorf("nested target = %q", got)
	}
	if got := nested.SectionPath(); len(got) != 2 || got[0] != "limits" || got[1] != "api" {
		t.Errorf("SectionPath = %v", got)
	}
}

func TestAnnotation_HasDefault(t *testing.T) {
	if (Annotation{}).HasDefault() {
		t.Error("zero annotation has a default")
	}
	if !(Annotation{Default: 0}).HasDefault() {
		t.Error("zero-valued default not reported")
	}
}
