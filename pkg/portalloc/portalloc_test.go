package portalloc

import "testing"

func TestHostIP(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"valid", "tcp://10.0.0.5:2375", "10.0.0.5", false},
		{"no scheme separator", "10.0.0.5", "", true},
		{"empty ip", "tcp://:2375", "", true},
		{"too many segments", "tcp://10.0.0.5:2375:extra", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HostIP(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HostIP(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HostIP(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	addr, err := Address("tcp://10.0.0.5:2375")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "10.0.0.5:2375" {
		t.Errorf("Address() = %q, want %q", addr, "10.0.0.5:2375")
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		n       int
		used    []int
		want    []int
		wantErr bool
	}{
		{"simple scan", 30000, 3, nil, []int{30000, 30001, 30002}, false},
		{"skips used ports", 30000, 2, []int{30000, 30001}, []int{30002, 30003}, false},
		{"zero count returns empty", 30000, 0, nil, []int{}, false},
		{"negative count returns empty", 30000, -1, nil, []int{}, false},
		{"exhausted near ceiling", maxPort - 1, 5, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Allocate(tt.start, tt.n, tt.used)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Allocate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Allocate() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Allocate()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAllocateOneIsExhaustiveFromStart(t *testing.T) {
	port, err := AllocateOne(30000, []int{30000, 30001, 30002})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != 30003 {
		t.Errorf("AllocateOne() = %d, want 30003", port)
	}
}
