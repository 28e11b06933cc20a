package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Phonolib/model"
)

func TestLocalDriverRoundTrip(t *testing.T) {
	ctx := context.Background()
	driver, err := NewLocalDriver(t.TempDir())
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	const userID = "user-a"
	if err := driver.InitUser(ctx, userID); err != nil {
		t.Fatalf("init user: %v", err)
	}

	src := filepath.Join(t.TempDir(), "song.wav")
	payload := []byte("wav payload")
	if err := os.WriteFile(src, payload, 0644); err != nil {
		t.Fatal(err)
	}

	name := driver.GenerateFilename("wav", userID)
	if !strings.HasSuffix(name, ".wav") {
		t.Errorf("generated name %q has wrong extension", name)
	}

	stored, err := driver.Store(ctx, src, name, userID)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	exists, err := driver.Exists(ctx, stored, userID)
	if err != nil || !exists {
		t.Fatalf("stored file missing: exists=%v err=%v", exists, err)
	}

	r, err := driver.Open(ctx, stored, userID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := io.ReadAll(r)
	r.Close()
	if err != nil || !bytes.Equal(got, payload) {
		t.Errorf("read back %q, want %q (err %v)", got, payload, err)
	}

	names, err := driver.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != stored {
		t.Errorf("list = %v, want [%s]", names, stored)
	}

	// Users do not see each other's files.
	names, err = driver.List(ctx, "user-b")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("other user's listing = %v, want empty", names)
	}

	if err := driver.Remove(ctx, stored, userID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	exists, err = driver.Exists(ctx, stored, userID)
	if err != nil || exists {
		t.Errorf("file still exists after remove: %v %v", exists, err)
	}
}

func TestLocalDriverStoreBytes(t *testing.T) {
	ctx := context.Background()
	driver, err := NewLocalDriver(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	stored, err := driver.StoreBytes(ctx, []byte("raw"), "data.blob", "user-a")
	if err != nil {
		t.Fatalf("store bytes: %v", err)
	}
	r, err := driver.Open(ctx, stored, "user-a")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "raw" {
		t.Errorf("read back %q", got)
	}
}

func TestLocalDriverLocation(t *testing.T) {
	driver, err := NewLocalDriver(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if driver.Location() != model.LocationLocal {
		t.Errorf("location = %s", driver.Location())
	}
	if driver.Name("/some/dir/file.wav", "u") != "file.wav" {
		t.Error("Name did not strip the directory")
	}
}
