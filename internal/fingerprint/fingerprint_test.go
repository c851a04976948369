package fingerprint

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash("The Migration Act 1958 governs entry to Australia.")
	b := Hash("The Migration Act 1958 governs entry to Australia.")
	if a != b {
		t.Errorf("same input produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHash_SensitiveToContent(t *testing.T) {
	a := Hash("Para A is about visas.")
	b := Hash("Para A is about visas. ")
	if a == b {
		t.Error("digest should change when content changes")
	}
}

func TestShouldUpdate(t *testing.T) {
	digest := Hash("content")

	if !ShouldUpdate("", digest) {
		t.Error("missing prior record must trigger an update")
	}
	if !ShouldUpdate(Hash("old content"), digest) {
		t.Error("differing digests must trigger an update")
	}
	if ShouldUpdate(digest, digest) {
		t.Error("equal digests must not trigger an update")
	}
}
