package authz

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

// makeJWS builds an unsigned (alg: none) JWS compact serialization carrying
// the given claims. Signature verification is out of scope for Authorizer,
// so an empty third segment is sufficient to exercise claim extraction.
func makeJWS(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "."
}

type fakeEntity struct {
	scope    string
	readOnly bool
}

func (f fakeEntity) Scope() string    { return f.scope }
func (f fakeEntity) IsReadOnly() bool { return f.readOnly }

func TestNewExtractsScopeAndExp(t *testing.T) {
	tok := makeJWS(t, map[string]interface{}{
		"scope": "st2138:mon st2138:op:w",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	})
	a, err := New(tok)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if !a.ReadAuthzScope("st2138:mon") {
		t.Error("expected read authz for st2138:mon")
	}
	if !a.ReadAuthzScope("st2138:op") {
		t.Error("write grant should imply read authz for st2138:op")
	}
	if !a.WriteAuthzScope("st2138:op") {
		t.Error("expected write authz for st2138:op")
	}
	if a.WriteAuthzScope("st2138:mon") {
		t.Error("did not expect write authz for st2138:mon (no :w grant)")
	}
	if a.IsExpired() {
		t.Error("token should not be expired")
	}
}

func TestNewMissingClaims(t *testing.T) {
	tok := makeJWS(t, map[string]interface{}{})
	a, err := New(tok)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if a.ReadAuthzScope("st2138:mon") {
		t.Error("expected no read authz with empty scope set")
	}
	if a.exp != 0 {
		t.Errorf("expected exp=0, got %d", a.exp)
	}
}

func TestNewInvalidToken(t *testing.T) {
	if _, err := New("not-a-token"); err == nil {
		t.Error("expected parse failure for malformed token")
	}
}

func TestIsExpired(t *testing.T) {
	past := makeJWS(t, map[string]interface{}{"exp": float64(time.Now().Add(-time.Hour).Unix())})
	a, err := New(past)
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsExpired() {
		t.Error("expected expired token")
	}
}

func TestDisabledSentinel(t *testing.T) {
	if !Disabled.IsDisabled() {
		t.Error("Disabled.IsDisabled() should be true")
	}
	fresh := &Authorizer{clientScopes: map[string]struct{}{"": {}}}
	if fresh.IsDisabled() {
		t.Error("identity comparison should not match a separately constructed authorizer with the same scope set")
	}
}

func TestDisabledGrantsReadAlways(t *testing.T) {
	rw := fakeEntity{scope: "st2138:adm", readOnly: false}
	ro := fakeEntity{scope: "st2138:adm", readOnly: true}
	if !Disabled.ReadAuthz(rw, "") || !Disabled.ReadAuthz(ro, "") {
		t.Error("Disabled must grant read on every target")
	}
	if !Disabled.WriteAuthz(rw, "") {
		t.Error("Disabled must grant write on non-read-only targets")
	}
	if Disabled.WriteAuthz(ro, "") {
		t.Error("Disabled must not grant write on read-only targets")
	}
}

func TestWriteAuthzFalseForReadOnly(t *testing.T) {
	tok := makeJWS(t, map[string]interface{}{"scope": "st2138:cfg:w"})
	a, err := New(tok)
	if err != nil {
		t.Fatal(err)
	}
	ro := fakeEntity{scope: "st2138:cfg", readOnly: true}
	if a.WriteAuthz(ro, "") {
		t.Error("read-only entity must never grant write, even with a matching scope")
	}
}
