package application

import (
	"testing"

	"slot-server/server/domain"
)

type fakeLimiter struct {
	allow bool
}

func (f fakeLimiter) Allow() bool { return f.allow }

type fakeStore struct {
	lim domain.Limiter
}

func (s fakeStore) Get(domain.Key) domain.Limiter { return s.lim }

func TestService_Decide_AllowsWhenNoStore(t *testing.T) {
	svc := Service{}
	if dec := svc.Decide("10.0.0.1"); !dec.Allowed {
		t.Fatalf("expected allowed")
	}
}

func TestService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	svc := Service{Store: fakeStore{}}
	if dec := svc.Decide("10.0.0.1"); !dec.Allowed {
		t.Fatalf("expected allowed")
	}
}

func TestService_Decide_FollowsLimiter(t *testing.T) {
	if dec := (Service{Store: fakeStore{lim: fakeLimiter{allow: true}}}).Decide("k"); !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec := (Service{Store: fakeStore{lim: fakeLimiter{allow: false}}}).Decide("k"); dec.Allowed {
		t.Fatalf("expected blocked")
	}
}
