package core

import (
	"net"
	"testing"
)

func TestSendGetRejectsOversizedChunk(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		br := make([]byte, 256)
		server.Read(br)
		server.Write([]byte("<CHUNK> 0 999\n"))
	}()

	_, kind, err := sendGet(client, "a.bin", 0, 32)
	if err == nil {
		t.Fatalf("expected error for oversized chunk, got kind=%v", kind)
	}
	if kind != FailTemp {
		t.Fatalf("expected FailTemp, got %v", kind)
	}
}

func TestParseGetLineLastTokenIsIndex(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantIdx  int64
		wantOK   bool
	}{
		{"a.bin 0", "a.bin", 0, true},
		{"my file with spaces.txt 12", "my file with spaces.txt", 12, true},
		{"noindex", "", 0, false},
		{"a.bin -1", "", 0, false},
		{"a.bin abc", "", 0, false},
		{" 3", "", 0, false},
	}

	for _, c := range cases {
		name, idx, ok := parseGetLine(c.in)
		if ok != c.wantOK {
			t.Errorf("parseGetLine(%q) ok = %v, want %v", c.in, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if name != c.wantName || idx != c.wantIdx {
			t.Errorf("parseGetLine(%q) = (%q, %d), want (%q, %d)", c.in, name, idx, c.wantName, c.wantIdx)
		}
	}
}

func TestEncodeChunkHeader(t *testing.T) {
	got := string(encodeChunkHeader(3, 32))
	want := "<CHUNK> 3 32\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestChunkCount(t *testing.T) {
	cs := ChunkSize(32)
	cases := []struct {
		size int64
		want int64
	}{
		{0, 0},
		{1, 1},
		{32, 1},
		{33, 2},
		{96, 3},
		{70, 3},
	}
	for _, c := range cases {
		if got := cs.ChunkCount(c.size); got != c.want {
			t.Errorf("ChunkCount(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}
