package core

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func startTestServer(t *testing.T, dir string, cs ChunkSize) (net.Listener, *SeedServer) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewSeedServer(dir, cs)
	srv.Start(ln)
	t.Cleanup(srv.Stop)
	return ln, srv
}

func dialTest(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestSeedServerList(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.bin"), []byte("hello"), 0644)
	os.WriteFile(filepath.Join(dir, "b.bin"), []byte("world"), 0644)
	os.Mkdir(filepath.Join(dir, "subdir"), 0755)

	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	names, err := sendList(conn)
	if err != nil {
		t.Fatalf("sendList: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 files, got %v", names)
	}
}

func TestSeedServerMetaNotFound(t *testing.T) {
	dir := t.TempDir()
	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	_, kind, err := sendMeta(conn, "missing.bin")
	if err != nil {
		t.Fatalf("sendMeta: %v", err)
	}
	if kind != FailNotFound {
		t.Fatalf("expected FailNotFound, got %v", kind)
	}
}

func TestSeedServerMetaEmptyFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "empty.bin"), []byte{}, 0644)
	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	size, kind, err := sendMeta(conn, "empty.bin")
	if err != nil || kind != FailNone {
		t.Fatalf("sendMeta: size=%d kind=%v err=%v", size, kind, err)
	}
	if size != 0 {
		t.Fatalf("expected size 0, got %d", size)
	}
}

func TestSeedServerGetRangeErrorOnEmptyFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "empty.bin"), []byte{}, 0644)
	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	_, kind, err := sendGet(conn, "empty.bin", 0, 32)
	if err != nil {
		t.Fatalf("sendGet: %v", err)
	}
	if kind != FailRangeOrBad {
		t.Fatalf("expected FailRangeOrBad, got %v", kind)
	}
}

func TestSeedServerGetExactChunk(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 96)
	for i := range data {
		data[i] = byte(i)
	}
	os.WriteFile(filepath.Join(dir, "a.bin"), data, 0644)
	ln, _ := startTestServer(t, dir, 32)

	for idx := int64(0); idx < 3; idx++ {
		conn := dialTest(t, ln)
		payload, kind, err := sendGet(conn, "a.bin", idx, 32)
		conn.Close()
		if err != nil || kind != FailNone {
			t.Fatalf("sendGet(%d): kind=%v err=%v", idx, kind, err)
		}
		if len(payload) != 32 {
			t.Fatalf("sendGet(%d): got %d bytes, want 32", idx, len(payload))
		}
	}
}

func TestSeedServerGetShortFinalChunk(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 70)
	os.WriteFile(filepath.Join(dir, "b.bin"), data, 0644)
	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	payload, kind, err := sendGet(conn, "b.bin", 2, 32)
	if err != nil || kind != FailNone {
		t.Fatalf("sendGet: kind=%v err=%v", kind, err)
	}
	if len(payload) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(payload))
	}
}

func TestSeedServerBadRequest(t *testing.T) {
	dir := t.TempDir()
	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	if err := writeAll(conn, []byte("NONSENSE\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	br := bufio.NewReader(conn)
	line, err := readLine(br, maxHeaderLine)
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	if string(line) != "<BAD_REQUEST>" {
		t.Fatalf("got %q want <BAD_REQUEST>", line)
	}
}

func TestSeedServerGetFilenameWithSpaces(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "my file.bin"), []byte("0123456789"), 0644)
	ln, _ := startTestServer(t, dir, 32)
	conn := dialTest(t, ln)
	defer conn.Close()

	payload, kind, err := sendGet(conn, "my file.bin", 0, 32)
	if err != nil || kind != FailNone {
		t.Fatalf("sendGet: kind=%v err=%v", kind, err)
	}
	if string(payload) != "0123456789" {
		t.Fatalf("got %q", payload)
	}
}

func TestSeedServerStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewSeedServer(dir, 32)
	srv.Start(ln)
	srv.Stop()
	srv.Stop()
}
