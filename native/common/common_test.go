package common

import (
	"errors"
	"fmt"
	"testing"
)

type pauses map[string]bool

func (p pauses) IsPaused(module string) bool { return p[module] }

type grants map[[20]byte]Capability

func (g grants) HasCapability(addr [20]byte, c Capability) bool { return g[addr] == c }

func TestGuard(t *testing.T) {
	if err := Guard(nil, ModuleLedger); err != nil {
		t.Fatalf("nil view should allow: %v", err)
	}
	view := pauses{ModuleAirdrop: true}
	if err := Guard(view, ModuleLedger); err != nil {
		t.Fatalf("unexpected pause: %v", err)
	}
	if err := Guard(view, ModuleAirdrop); !errors.Is(err, ErrSystemPaused) {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	admin := [20]byte{1}
	other := [20]byte{2}
	auth := grants{admin: CapTaxAdmin}
	if err := Authorize(auth, admin, CapTaxAdmin); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
	err := Authorize(auth, other, CapTaxAdmin)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var unauthorized *UnauthorizedError
	if !errors.As(err, &unauthorized) || unauthorized.Capability != CapTaxAdmin {
		t.Fatalf("expected structured error, got %v", err)
	}
	if KindOf(err) != KindAuthorization {
		t.Fatalf("unexpected kind %s", KindOf(err))
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("ledger: %w", ErrZeroAmount)
	if KindOf(err) != KindValidation {
		t.Fatalf("unexpected kind %s", KindOf(err))
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors should be internal")
	}
}

func TestReentrancyGuard(t *testing.T) {
	var g ReentrancyGuard
	if err := g.Enter(); err != nil {
		t.Fatalf("first enter: %v", err)
	}
	if err := g.Enter(); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}
	g.Exit()
	if err := g.Enter(); err != nil {
		t.Fatalf("enter after exit: %v", err)
	}
}

func TestCapabilityValid(t *testing.T) {
	if !CapVestingAdmin.Valid() {
		t.Fatalf("expected known capability")
	}
	if Capability("root").Valid() {
		t.Fatalf("unexpected capability accepted")
	}
}
