// Package iobyte is the ByteSource collaborator spec.md names but leaves
// unnamed ("external, named not specified" — spec.md §9): the thing a
// FragmentSource reads fragment bytes from. It is expressed as a small
// capability-set interface, per spec.md §9's design note preferring
// composition over a single fat demuxer interface, rather than baking an
// HTTP client into session.FragmentSource directly.
package iobyte

import "context"

// ByteSource opens a single fragment URL and streams its bytes. Each
// Fetch call corresponds to one avio_open2 in the original source's
// read_data: it is not seekable and is read once, start to EOF, then
// closed.
type ByteSource interface {
	// Fetch opens url and returns a reader positioned at its first byte.
	// The original source passes opts={"seekable": "0"} for every fragment
	// request (live fragments are not random-accessible); implementations
	// should honor the equivalent hint when their transport has one.
	//
	// ctx cancellation aborts an in-flight fetch or read, replacing the
	// original source's ff_check_interrupt callback.
	Fetch(ctx context.Context, url string) (FragmentReader, error)
}

// FragmentReader is the open fragment stream. Callers read it to EOF, then
// Close it; there is no Seek, matching the original source's fragment I/O
// contract.
type FragmentReader interface {
	Read(p []byte) (int, error)
	Close() error
}
