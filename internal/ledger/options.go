package ledger

import "fmt"

// VotePolicy decides what a repeat vote by the same user on the same answer does.
type VotePolicy string

const (
	// VoteAppend records every vote action as its own row.
	VoteAppend VotePolicy = "append"
	// VoteUpsert keeps one vote per user per answer and overwrites its direction.
	VoteUpsert VotePolicy = "upsert"
)

// AcceptPolicy decides what accepting an answer does when the question
// already has a different accepted answer.
type AcceptPolicy string

const (
	// AcceptReplace clears the previous acceptance in the same transaction.
	AcceptReplace AcceptPolicy = "replace"
	// AcceptReject fails with ErrConflict.
	AcceptReject AcceptPolicy = "reject"
)

// AcceptAuthority decides who may accept or unaccept an answer.
type AcceptAuthority string

const (
	AcceptByAnyone AcceptAuthority = "any"
	AcceptByOwner  AcceptAuthority = "owner" // question owner or an admin
)

type Options struct {
	VotePolicy      VotePolicy
	AcceptPolicy    AcceptPolicy
	AcceptAuthority AcceptAuthority
}

// DefaultOptions mirror the forum's long-standing behaviour.
func DefaultOptions() Options {
	return Options{
		VotePolicy:      VoteAppend,
		AcceptPolicy:    AcceptReplace,
		AcceptAuthority: AcceptByAnyone,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.VotePolicy == "" {
		o.VotePolicy = d.VotePolicy
	}
	if o.AcceptPolicy == "" {
		o.AcceptPolicy = d.AcceptPolicy
	}
	if o.AcceptAuthority == "" {
		o.AcceptAuthority = d.AcceptAuthority
	}
	return o
}

// Validate reports the first unknown policy value.
func (o Options) Validate() error {
	switch o.VotePolicy {
	case VoteAppend, VoteUpsert:
	default:
		return fmt.Errorf("unknown vote policy %q", o.VotePolicy)
	}
	switch o.AcceptPolicy {
	case AcceptReplace, AcceptReject:
	default:
		return fmt.Errorf("unknown accept policy %q", o.AcceptPolicy)
	}
	switch o.AcceptAuthority {
	case AcceptByAnyone, AcceptByOwner:
	default:
		return fmt.Errorf("unknown accept authority %q", o.AcceptAuthority)
	}
	return nil
}
