package locale

import (
	"reflect"
	"testing"
)

func TestRegionCodes(t *testing.T) {
	got := RegionCodes()
	want := []string{"GB", "IL", "US"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("RegionCodes() = %v, want %v", got, want)
	}
}

func TestRegionsForPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  []string
	}{
		{
			name:  "israeli prefix without plus moves IL first",
			phone: "972521234567",
			want:  []string{"IL", "GB", "US"},
		},
		{
			name:  "uk prefix with plus moves GB first",
			phone: "+44 20 7946 0958",
			want:  []string{"GB", "IL", "US"},
		},
		{
			name:  "us prefix moves US first",
			phone: "+1 212 555 1234",
			want:  []string{"US", "GB", "IL"},
		},
		{
			name:  "no recognizable prefix keeps stable order",
			phone: "0521234567",
			want:  []string{"GB", "IL", "US"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RegionsForPhone(tt.phone)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RegionsForPhone(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}
