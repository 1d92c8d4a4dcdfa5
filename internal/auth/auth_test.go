package auth

import (
	"net/http/httptest"
	"testing"
)

func TestBasicAuthenticate(t *testing.T) {
	t.Parallel()
	b := NewBasic([]User{
		{Name: "alice", Email: "alice@example.com", Password: "s3cret"},
		{Name: "bob", Password: "hunter2"},
	})

	r := httptest.NewRequest("GET", "/", nil)
	r.SetBasicAuth("alice", "s3cret")
	claims, err := b.Authenticate(r)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims["name"] != "alice" || claims["email"] != "alice@example.com" {
		t.Fatalf("claims = %#v", claims)
	}
}

func TestBasicRejectsBadPassword(t *testing.T) {
	t.Parallel()
	b := NewBasic([]User{{Name: "alice", Password: "s3cret"}})

	r := httptest.NewRequest("GET", "/", nil)
	r.SetBasicAuth("alice", "wrong")
	if _, err := b.Authenticate(r); err != ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestBasicRejectsMissingCredentials(t *testing.T) {
	t.Parallel()
	b := NewBasic([]User{{Name: "alice", Password: "s3cret"}})
	if _, err := b.Authenticate(httptest.NewRequest("GET", "/", nil)); err != ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestBasicEmptyUserListRejectsEveryone(t *testing.T) {
	t.Parallel()
	b := NewBasic(nil)
	r := httptest.NewRequest("GET", "/", nil)
	r.SetBasicAuth("anyone", "anything")
	if _, err := b.Authenticate(r); err != ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAllowAll(t *testing.T) {
	t.Parallel()
	claims, err := AllowAll{}.Authenticate(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if len(claims) != 0 {
		t.Fatalf("claims = %#v, want none", claims)
	}
}
