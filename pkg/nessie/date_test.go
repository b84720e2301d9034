package nessie

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:    "date only format YYYY-MM-DD",
			input:   `"2025-08-30"`,
			want:    "2025-08-30",
			wantErr: false,
		},
		{
			name:    "RFC3339 format",
			input:   `"2025-08-30T15:04:05Z"`,
			want:    "2025-08-30",
			wantErr: false,
		},
		{
			name:    "datetime without timezone",
			input:   `"2025-08-30T15:04:05"`,
			want:    "2025-08-30",
			wantErr: false,
		},
		{
			name:    "US slash format",
			input:   `"08/30/2025"`,
			want:    "2025-08-30",
			wantErr: false,
		},
		{
			name:    "null value",
			input:   `null`,
			want:    "",
			wantErr: false,
		},
		{
			name:    "empty string",
			input:   `""`,
			want:    "",
			wantErr: false,
		},
		{
			name:    "invalid format",
			input:   `"not-a-date"`,
			want:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)

			if (err != nil) != tt.wantErr {
				t.Errorf("Date.UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil {
				got := d.String()
				if got != tt.want {
					t.Errorf("Date.UnmarshalJSON() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		date Date
		want string
	}{
		{
			name: "valid date",
			date: Date{Time: time.Date(2025, 8, 30, 14, 0, 0, 0, time.UTC)},
			want: `"2025-08-30"`,
		},
		{
			name: "zero date",
			date: Date{},
			want: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.date)
			if err != nil {
				t.Fatalf("Date.MarshalJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Date.MarshalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewDate_Truncates(t *testing.T) {
	d := NewDate(time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC))
	if d.String() != "2026-10-15" || d.Hour() != 0 {
		t.Errorf("NewDate() = %v", d.Time)
	}
}

func TestParseDate_Empty(t *testing.T) {
	if _, ok := ParseDate("  "); ok {
		t.Error("ParseDate() accepted blank input")
	}
}
