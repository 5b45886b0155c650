package ob

import "testing"

func TestAclCapacity(t *testing.T) {
	acl := NewAcl(2)

	if err := acl.AddAccessAllowedAce(WorldSid, Synchronize); err != nil {
		t.Fatal(err)
	}

	if err := acl.AddAccessAllowedAce(LocalSystemSid, EventAllAccess); err != nil {
		t.Fatal(err)
	}

	if err := acl.AddAccessAllowedAce(AdministratorsSid, EventAllAccess); err != errAclFull {
		t.Fatalf("expected errAclFull; got %v", err)
	}
}

func TestAclGrantedAccess(t *testing.T) {
	acl := NewAcl(3)
	acl.AddAccessAllowedAce(WorldSid, Synchronize|EventQueryState|ReadControl)
	acl.AddAccessAllowedAce(AdministratorsSid, EventAllAccess)
	acl.AddAccessAllowedAce(LocalSystemSid, EventAllAccess)

	specs := []struct {
		sid Sid
		exp AccessMask
	}{
		{WorldSid, Synchronize | EventQueryState | ReadControl},
		{AdministratorsSid, EventAllAccess},
		{LocalSystemSid, EventAllAccess},
		{Sid("S-1-5-7"), 0},
	}

	for specIndex, spec := range specs {
		if got := acl.GrantedAccess(spec.sid); got != spec.exp {
			t.Errorf("[spec %d] expected granted access %x; got %x", specIndex, spec.exp, got)
		}
	}

	// World must not be able to modify the event state.
	if acl.GrantedAccess(WorldSid)&EventModifyState != 0 {
		t.Error("expected world principal to lack EventModifyState")
	}
}

func TestEventStateTransitions(t *testing.T) {
	var ev Event

	if ev.ReadState() {
		t.Fatal("expected a fresh event to be non-signaled")
	}

	ev.Set()
	if !ev.ReadState() {
		t.Fatal("expected event to remain signaled until cleared")
	}

	ev.Clear()
	if ev.ReadState() {
		t.Fatal("expected event to be non-signaled after Clear")
	}
}

func TestDirectoryRejectsDuplicateNames(t *testing.T) {
	dir := NewDirectory()

	ev, err := dir.CreateEvent(`\KernelObjects\LowMemoryCondition`, SecurityDescriptor{})
	if err != nil {
		t.Fatal(err)
	}

	if got := dir.Lookup(`\KernelObjects\LowMemoryCondition`); got != ev {
		t.Fatal("expected Lookup to return the created event")
	}

	if _, err = dir.CreateEvent(`\KernelObjects\LowMemoryCondition`, SecurityDescriptor{}); err != errNameInUse {
		t.Fatalf("expected errNameInUse; got %v", err)
	}

	if got := dir.Lookup(`\KernelObjects\Missing`); got != nil {
		t.Fatalf("expected Lookup of unknown name to return nil; got %v", got)
	}
}
