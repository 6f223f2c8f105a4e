package record

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"

	"github.com/monetarium/votechain/votecrypto"
)

func mustRSAKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return priv, der
}

func TestElectionRoundTripAndHash(t *testing.T) {
	_, der1 := mustRSAKey(t)
	_, der2 := mustRSAKey(t)
	e := &Election{
		Name:       "E",
		Choices:    []string{"A", "B"},
		PublicKeys: [][]byte{der1, der2},
		EndTime:    1234,
	}
	raw := e.CanonicalJSON()

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e2, ok := parsed.(*Election)
	if !ok {
		t.Fatalf("expected *Election, got %T", parsed)
	}
	if e2.Hash() != e.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
	if !e2.HasChoice("A") || e2.HasChoice("C") {
		t.Fatalf("HasChoice behaved incorrectly")
	}
	if !e2.IsEligible(der1) {
		t.Fatalf("expected der1 to be eligible")
	}
}

func TestElectionHashStableForIdenticalInput(t *testing.T) {
	_, der := mustRSAKey(t)
	e1 := &Election{Name: "E", Choices: []string{"A"}, PublicKeys: [][]byte{der}, EndTime: 1}
	e2 := &Election{Name: "E", Choices: []string{"A"}, PublicKeys: [][]byte{der}, EndTime: 1}
	if e1.Hash() != e2.Hash() {
		t.Fatalf("identical elections must hash identically")
	}
}

func TestVoteRoundTripAndSignature(t *testing.T) {
	priv, der := mustRSAKey(t)
	_, otherDer := mustRSAKey(t)
	e := &Election{Name: "E", Choices: []string{"A", "B"}, PublicKeys: [][]byte{der, otherDer}, EndTime: 99}

	msg := votecrypto.VoteMessage(e.Hash(), "A")
	sig, err := votecrypto.Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	v := &Vote{ElectionHash: e.Hash(), Choice: "A", PublicKey: der, Signature: sig}

	if !v.CheckSignature() {
		t.Fatalf("expected valid signature")
	}

	parsed, err := Parse(v.CanonicalJSON())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v2 := parsed.(*Vote)
	if !v2.CheckSignature() {
		t.Fatalf("expected round-tripped vote signature to verify")
	}
	if v2.Hash() != v.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
}

func TestVoteTamperedSignatureFails(t *testing.T) {
	priv, der := mustRSAKey(t)
	e := &Election{Name: "E", Choices: []string{"A"}, PublicKeys: [][]byte{der}, EndTime: 1}
	sig, _ := votecrypto.Sign(priv, votecrypto.VoteMessage(e.Hash(), "A"))
	sig[len(sig)-1] ^= 0xFF
	v := &Vote{ElectionHash: e.Hash(), Choice: "A", PublicKey: der, Signature: sig}
	if v.CheckSignature() {
		t.Fatalf("tampered signature must not verify")
	}
}

func TestEndOfElectionRoundTrip(t *testing.T) {
	end := &EndOfElection{
		ElectionHash: [32]byte{1, 2, 3},
		Results:      map[string]int{"A": 2, "B": 1},
	}
	parsed, err := Parse(end.CanonicalJSON())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	end2 := parsed.(*EndOfElection)
	if end2.Hash() != end.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
	if end2.Results["A"] != 2 || end2.Results["B"] != 1 {
		t.Fatalf("results mismatch: %+v", end2.Results)
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"bogus"}`)); err == nil {
		t.Fatalf("expected error for unknown record type")
	}
}
