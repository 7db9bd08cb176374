package scrape

import (
	"testing"
	"time"
)

func TestParseVolumeDate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    time.Time
		wantErr bool
	}{
		{
			name: "slash date",
			text: "3/1/2025",
			want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "zero padded slash date",
			text: "03/01/2025",
			want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "two digit year",
			text: "12/31/24",
			want: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "iso date",
			text: "2023-07-04",
			want: time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace",
			text: "  6/15/2024  ",
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "header text",
			text:    "Date",
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
		{
			name:    "slash date with too few parts",
			text:    "3/2025",
			wantErr: true,
		},
		{
			name:    "nonsense month",
			text:    "13/40/2025",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVolumeDate(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseVolumeDate(%q) expected error, got %v", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVolumeDate(%q) error = %v", tt.text, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseVolumeDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int64
		wantErr bool
	}{
		{
			name: "comma grouped",
			text: "2,203,329",
			want: 2203329,
		},
		{
			name: "plain number",
			text: "985421",
			want: 985421,
		},
		{
			name: "surrounding whitespace",
			text: " 1,500,000 ",
			want: 1500000,
		},
		{
			name:    "zero",
			text:    "0",
			wantErr: true,
		},
		{
			name:    "negative",
			text:    "-5",
			wantErr: true,
		},
		{
			name:    "header text",
			text:    "Numbers",
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVolume(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseVolume(%q) expected error, got %d", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVolume(%q) error = %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("ParseVolume(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalize_DropsBadRows(t *testing.T) {
	rows := []Row{
		{DateText: "Date", VolumeText: "Numbers"},
		{DateText: "3/1/2025", VolumeText: "2,203,329"},
		{DateText: "3/2/2025", VolumeText: "n/a"},
		{DateText: "not a date", VolumeText: "1,000,000"},
		{DateText: "3/3/2025", VolumeText: "1,987,654"},
	}

	obs := Normalize(rows, 2025, nil)

	if len(obs) != 2 {
		t.Fatalf("Normalize() kept %d rows, want 2", len(obs))
	}
	if obs[0].Volume != 2203329 {
		t.Errorf("first volume = %d, want 2203329", obs[0].Volume)
	}
	if !obs[1].Date.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second date = %v, want 2025-03-03", obs[1].Date)
	}
	for _, o := range obs {
		if o.SourceYear != 2025 {
			t.Errorf("SourceYear = %d, want 2025", o.SourceYear)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	if obs := Normalize(nil, 2024, nil); len(obs) != 0 {
		t.Errorf("Normalize(nil) = %v, want empty", obs)
	}
}
