// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromBytesZerosSource(t *testing.T) {
	source := []byte("syt_access_token")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "syt_access_token" {
		t.Errorf("String() = %q", buffer.String())
	}
	if !bytes.Equal(source, make([]byte, len(source))) {
		t.Error("source slice was not zeroed")
	}
}

func TestCloseIsIdempotentAndPanicsOnRead(t *testing.T) {
	buffer, err := NewFromBytes([]byte("tok"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Bytes() after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestReadFromPathTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  syt_abc\n"), 0o600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath failed: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "syt_abc" {
		t.Errorf("String() = %q, want %q", buffer.String(), "syt_abc")
	}
}

func TestReadFromPathEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath on empty file succeeded, want error")
	}
}
