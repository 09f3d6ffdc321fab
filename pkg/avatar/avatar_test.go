package avatar

import (
	"errors"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "versioned",
			url:  "https://avatars.githubusercontent.com/u/178611968?v=4",
			want: "avatars/178611968-4",
		},
		{
			name: "unversioned",
			url:  "https://avatars.githubusercontent.com/u/178611968",
			want: "avatars/178611968",
		},
		{
			name: "bare host also accepted",
			url:  "https://githubusercontent.com/u/1",
			want: "avatars/1",
		},
		{
			name:    "wrong scheme",
			url:     "ftp://avatars.githubusercontent.com/u/1",
			wantErr: true,
		},
		{
			name:    "wrong host",
			url:     "https://evil.example.com/u/1",
			wantErr: true,
		},
		{
			name:    "wrong path",
			url:     "https://avatars.githubusercontent.com/avatar/1",
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			url:     "https://avatars.githubusercontent.com/u/abc",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveKey(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Fatalf("expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveKeyIdempotent(t *testing.T) {
	const url = "https://avatars.githubusercontent.com/u/42?v=7"
	a, err := DeriveKey(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := DeriveKey(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("DeriveKey not idempotent: %q != %q", a, b)
	}
}
