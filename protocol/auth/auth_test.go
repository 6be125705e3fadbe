package auth

import (
	"testing"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/timestamp"
)

const relayURL = "wss://relay.example.com"

func TestValidate(t *testing.T) {
	challenge := GenerateChallenge()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := CreateUnsigned(sign.Pub(), challenge, relayURL)
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	ok, err := Validate(ev, challenge, relayURL)
	if err != nil {
		t.Fatalf("validate errored: %v", err)
	}
	if !ok {
		t.Fatal("valid auth response rejected")
	}
}

func TestValidateWrongChallenge(t *testing.T) {
	challenge := GenerateChallenge()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := CreateUnsigned(sign.Pub(), challenge, relayURL)
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	if ok, err := Validate(
		ev, GenerateChallenge(), relayURL,
	); ok || err == nil {
		t.Fatal("wrong challenge must be rejected")
	}
}

func TestValidateWrongRelay(t *testing.T) {
	challenge := GenerateChallenge()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := CreateUnsigned(sign.Pub(), challenge, "wss://other.example.com")
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	if ok, err := Validate(ev, challenge, relayURL); ok || err == nil {
		t.Fatal("wrong relay must be rejected")
	}
}

func TestValidateStaleTimestamp(t *testing.T) {
	challenge := GenerateChallenge()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := CreateUnsigned(sign.Pub(), challenge, relayURL)
	ev.CreatedAt = timestamp.FromUnix(
		ev.CreatedAt.I64() - int64(Tolerance.Seconds()) - 60,
	)
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	if ok, err := Validate(ev, challenge, relayURL); ok || err == nil {
		t.Fatal("stale auth event must be rejected")
	}
}

func TestValidateWrongKind(t *testing.T) {
	challenge := GenerateChallenge()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := CreateUnsigned(sign.Pub(), challenge, relayURL)
	ev.Kind = kind.TextNote
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	if ok, err := Validate(ev, challenge, relayURL); ok || err == nil {
		t.Fatal("wrong kind must be rejected")
	}
}
