package guard

import (
	"errors"
	"testing"

	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

func TestReentryRejected(t *testing.T) {
	g := New()

	release, err := g.Acquire(7)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := g.Acquire(7); !errors.Is(err, serrors.AccountBusy(7)) {
		t.Fatalf("expected AccountBusy, got %v", err)
	}

	// Unrelated accounts are not serialized.
	other, err := g.Acquire(8)
	if err != nil {
		t.Fatalf("acquire unrelated: %v", err)
	}
	other()

	release()
	release() // double release is harmless

	again, err := g.Acquire(7)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	again()
}

func TestPairAcquisitionIsAllOrNothing(t *testing.T) {
	g := New()

	release, err := g.Acquire(2)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	if _, err := g.Acquire(1, 2); err == nil {
		t.Fatalf("expected contention on 2")
	}

	// The failed pair acquisition must not leave 1 held.
	solo, err := g.Acquire(1)
	if err != nil {
		t.Fatalf("account 1 leaked from failed acquisition: %v", err)
	}
	solo()
}

func TestDuplicateIDsCollapse(t *testing.T) {
	g := New()
	release, err := g.Acquire(5, 5, 5)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	if _, err := g.Acquire(5); err != nil {
		t.Fatalf("token should be free after release: %v", err)
	}
}
