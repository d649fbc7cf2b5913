package inventory

import (
	"reflect"
	"testing"
)

func TestExpandHostRange(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "no range",
			pattern: "web1.example.com",
			want:    []string{"web1.example.com"},
		},
		{
			name:    "numeric range preserves padding",
			pattern: "web[01:03].example.com",
			want:    []string{"web01.example.com", "web02.example.com", "web03.example.com"},
		},
		{
			name:    "stride",
			pattern: "db[0:6:2]",
			want:    []string{"db0", "db2", "db4", "db6"},
		},
		{
			name:    "alphabetic range",
			pattern: "host[a:c]",
			want:    []string{"hosta", "hostb", "hostc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandHostRange(tt.pattern)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandHostRange(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestExpandHostRangeComposition(t *testing.T) {
	got, err := ExpandHostRange("rack[1:2]-host[1:2]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"rack1-host1", "rack1-host2", "rack2-host1", "rack2-host2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
