package session

import "errors"

// ErrIO is the byte-source/manifest-reload I/O error kind (spec §7).
var ErrIO = errors.New("session: I/O error")

// ErrNotSupported is returned for a byte-mode seek or any seek attempted on
// a live presentation (spec §7, §4.G).
var ErrNotSupported = errors.New("session: not supported")

// ErrInterrupted is returned by ReadPacket when ctx is cancelled during the
// FragmentSource AwaitReload sleep loop or an in-flight ByteSource fetch or
// read (spec §7, §5). Open reports a cancelled manifest fetch as ErrIO.
var ErrInterrupted = errors.New("session: interrupted")

// ErrEndOfStream is returned by ReadPacket once every active track is
// exhausted in VOD mode (spec §7).
var ErrEndOfStream = errors.New("session: end of stream")

// ErrNotOpen is returned by ReadPacket/Seek when called before Open has
// succeeded, or after Close. Close itself always returns nil.
var ErrNotOpen = errors.New("session: not open")
