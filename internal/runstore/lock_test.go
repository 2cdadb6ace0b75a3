package runstore

import "testing"

func TestAcquireBatchLock_BlocksConcurrentAcquire(t *testing.T) {
	outputRoot := t.TempDir()

	lock, err := AcquireBatchLock(outputRoot)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	if _, err := AcquireBatchLock(outputRoot); err == nil {
		t.Fatalf("expected second acquire to fail")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}

	lock2, err := AcquireBatchLock(outputRoot)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}

func TestAcquireBatchLock_CreatesOutputRoot(t *testing.T) {
	outputRoot := t.TempDir() + "/nested/results"

	lock, err := AcquireBatchLock(outputRoot)
	if err != nil {
		t.Fatalf("acquire lock in missing root: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}
