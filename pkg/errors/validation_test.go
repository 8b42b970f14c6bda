package errors

import (
	"testing"
)

func TestValidatePopulationName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "Denisova", false},
		{"valid with dash", "Ust-Ishim", false},
		{"valid with underscore", "French_B", false},
		{"valid with dot", "Papuan.DG", false},
		{"valid numeric suffix", "Altai2", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 100)), true},
		{"space", "San Bushman", true},
		{"tab", "San\tBushman", true},
		{"paren", "San(B)", true},
		{"comma", "San,B", true},
		{"colon", "San:0.1", true},
		{"semicolon", "San;", true},
		{"path traversal", "foo/../bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePopulationName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePopulationName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePopulations(t *testing.T) {
	tests := []struct {
		name        string
		populations []string
		outgroup    string
		wantErr     bool
		wantCode    Code
	}{
		{
			name:        "valid three populations",
			populations: []string{"A", "B", "C"},
			outgroup:    "Out",
		},
		{
			name:        "valid with outgroup in list",
			populations: []string{"Out", "A", "B"},
			outgroup:    "Out",
		},
		{
			name:        "duplicate label",
			populations: []string{"A", "B", "A"},
			outgroup:    "Out",
			wantErr:     true,
			wantCode:    ErrCodeLabelCollision,
		},
		{
			name:        "reserved internal label",
			populations: []string{"A", "n3", "B"},
			outgroup:    "Out",
			wantErr:     true,
			wantCode:    ErrCodeLabelCollision,
		},
		{
			name:        "reserved admixture label",
			populations: []string{"A", "a1", "B"},
			outgroup:    "Out",
			wantErr:     true,
			wantCode:    ErrCodeLabelCollision,
		},
		{
			name:        "too few besides outgroup",
			populations: []string{"Out", "A"},
			outgroup:    "Out",
			wantErr:     true,
			wantCode:    ErrCodeInvalidInput,
		},
		{
			name:        "empty outgroup",
			populations: []string{"A", "B"},
			outgroup:    "",
			wantErr:     true,
			wantCode:    ErrCodeInvalidInput,
		},
		{
			name:        "invalid population name",
			populations: []string{"A", "B(1)", "C"},
			outgroup:    "Out",
			wantErr:     true,
			wantCode:    ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePopulations(tt.populations, tt.outgroup)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePopulations() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && GetCode(err) != tt.wantCode {
				t.Errorf("GetCode() = %v, want %v", GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestValidateOutputPrefix(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid relative", "graphs/run1", false},
		{"valid absolute", "/tmp/qpermute/run1", false},
		{"valid with dash", "out/sim-qpgraph", false},

		{"empty", "", true},
		{"path traversal", "out/../secret", true},
		{"backslash", "out\\run1", true},
		{"null byte", "out\x00run1", true},
		{"control char", "out\x01run1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPrefix(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPrefix(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGraphHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid short hash", "d4f6b48", false},
		{"valid full sha1", "d4f6b48cbbe0856a50c8d41d60ba972b4bcd52a2", false},

		{"empty", "", true},
		{"too short", "d4f6b4", true},
		{"uppercase", "D4F6B48", true},
		{"non-hex", "d4f6g48", true},
		{"path traversal", "../d4f6b48", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraphHash(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGraphHash(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
