package webhooks

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"solveId":"slv_1"}`)
	sig := SignHMAC("secret", body)
	if !VerifyHMAC("secret", body, sig) {
		t.Fatal("signature should verify with the signing secret")
	}
	if VerifyHMAC("other", body, sig) {
		t.Fatal("signature must not verify under a different secret")
	}
	if VerifyHMAC("secret", []byte(`{"solveId":"slv_2"}`), sig) {
		t.Fatal("signature must not verify for a tampered body")
	}
	if VerifyHMAC("secret", body, "not-hex") {
		t.Fatal("malformed hex must not verify")
	}
}
