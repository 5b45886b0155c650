// Package ob implements the small slice of the object manager needed by the
// memory manager: named notification events with access-controlled security
// descriptors.
package ob

import "mmos/kernel"

var errAclFull = &kernel.Error{Module: "ob", Message: "access control list has no room for another entry"}

// AccessMask describes the rights granted by an access control entry.
type AccessMask uint32

// Generic and event-specific access rights.
const (
	EventQueryState  AccessMask = 0x0001
	EventModifyState AccessMask = 0x0002
	ReadControl      AccessMask = 0x00020000
	Synchronize      AccessMask = 0x00100000

	EventAllAccess AccessMask = ReadControl | 0x000d0000 | Synchronize | EventQueryState | EventModifyState
)

// Sid identifies a security principal.
type Sid string

// Well known security principals.
const (
	WorldSid          Sid = "S-1-1-0"
	AdministratorsSid Sid = "S-1-5-32-544"
	LocalSystemSid    Sid = "S-1-5-18"
)

// AccessAllowedAce grants Access to the principal identified by Sid.
type AccessAllowedAce struct {
	Sid    Sid
	Access AccessMask
}

// Acl is a fixed-capacity list of access control entries.
type Acl struct {
	capacity int
	entries  []AccessAllowedAce
}

// NewAcl creates an ACL with room for capacity entries.
func NewAcl(capacity int) *Acl {
	return &Acl{
		capacity: capacity,
		entries:  make([]AccessAllowedAce, 0, capacity),
	}
}

// AddAccessAllowedAce appends an entry granting access to the supplied
// principal. It fails if the list is full.
func (a *Acl) AddAccessAllowedAce(sid Sid, access AccessMask) *kernel.Error {
	if len(a.entries) == a.capacity {
		return errAclFull
	}

	a.entries = append(a.entries, AccessAllowedAce{Sid: sid, Access: access})
	return nil
}

// GrantedAccess returns the combined rights the ACL grants to the supplied
// principal.
func (a *Acl) GrantedAccess(sid Sid) AccessMask {
	var granted AccessMask
	for _, ace := range a.entries {
		if ace.Sid == sid {
			granted |= ace.Access
		}
	}

	return granted
}

// SecurityDescriptor associates an object with its discretionary ACL.
type SecurityDescriptor struct {
	Dacl *Acl
}

// SetDaclDefaulted installs the supplied ACL as the discretionary ACL.
func (sd *SecurityDescriptor) SetDaclDefaulted(dacl *Acl) {
	sd.Dacl = dacl
}
