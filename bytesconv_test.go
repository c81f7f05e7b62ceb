package httpd

import "testing"

func TestReadHexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"a", 10, false},
		{"ff", 255, false},
		{"FF", 255, false},
		{"1a2b", 0x1a2b, false},
		{"", -1, true},
		{"zz", -1, true},
	}
	for _, tt := range tests {
		n, _, err := readHexInt([]byte(tt.in))
		if tt.wantErr {
			if err == nil {
				t.Errorf("readHexInt(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("readHexInt(%q): unexpected error %v", tt.in, err)
			continue
		}
		if n != tt.want {
			t.Errorf("readHexInt(%q) = %d, want %d", tt.in, n, tt.want)
		}
	}
}

func TestReadHexIntStopsAtExtension(t *testing.T) {
	n, consumed, err := readHexInt([]byte("1a;foo=bar"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0x1a {
		t.Errorf("got %d, want %d", n, 0x1a)
	}
	if consumed != 2 {
		t.Errorf("consumed = %d, want 2", consumed)
	}
}

func TestWriteHexInt(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{10, "a"},
		{255, "ff"},
		{0x1a2b, "1a2b"},
	}
	for _, tt := range tests {
		got := string(writeHexInt(nil, tt.in))
		if got != tt.want {
			t.Errorf("writeHexInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
