package kind

import (
	"testing"
)

func TestClassification(t *testing.T) {
	if !New(1).IsRegular() {
		t.Fatal("kind 1 must be regular")
	}
	if !New(0).IsPlainReplaceable() {
		t.Fatal("kind 0 must be replaceable")
	}
	if !New(3).IsPlainReplaceable() {
		t.Fatal("kind 3 must be replaceable")
	}
	if !New(10002).IsPlainReplaceable() {
		t.Fatal("kind 10002 must be replaceable")
	}
	if !New(20001).IsEphemeral() {
		t.Fatal("kind 20001 must be ephemeral")
	}
	if New(20001).IsReplaceable() {
		t.Fatal("ephemeral kinds are not replaceable")
	}
	if !New(30023).IsParameterizedReplaceable() {
		t.Fatal("kind 30023 must be addressable")
	}
	if !New(39000).IsParameterizedReplaceable() {
		t.Fatal("kind 39000 must be addressable")
	}
	if New(9000).IsReplaceable() || New(9000).IsEphemeral() {
		t.Fatal("kind 9000 must be regular")
	}
}

func TestLegacyReplaceable(t *testing.T) {
	SetLegacyReplaceable(true)
	defer SetLegacyReplaceable(false)
	if !New(0).IsPlainReplaceable() {
		t.Fatal("kind 0 must stay replaceable in legacy mode")
	}
	if New(3).IsPlainReplaceable() {
		t.Fatal("kind 3 must not be replaceable in legacy mode")
	}
	if New(10002).IsPlainReplaceable() {
		t.Fatal("kind 10002 must not be replaceable in legacy mode")
	}
	if !New(30023).IsParameterizedReplaceable() {
		t.Fatal("addressable range is unchanged in legacy mode")
	}
}

func TestGroupRanges(t *testing.T) {
	for _, k := range []uint16{9000, 9005, 9007, 9020} {
		if !New(k).IsGroupModeration() {
			t.Fatalf("kind %d must be group moderation", k)
		}
	}
	if New(9021).IsGroupModeration() {
		t.Fatal("kind 9021 is a join request, not moderation")
	}
	for _, k := range []uint16{39000, 39001, 39002, 39003} {
		if !New(k).IsGroupMetadata() {
			t.Fatalf("kind %d must be group metadata", k)
		}
	}
	if New(39004).IsGroupMetadata() {
		t.Fatal("kind 39004 is not group metadata")
	}
}
