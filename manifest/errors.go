package manifest

import "errors"

// ErrInvalid is the manifest error kind: structural or attribute errors in
// the XML, or a fragment-URL template missing a required placeholder.
var ErrInvalid = errors.New("manifest invalid")

// ErrResourceLimit stands in for the original C source's OutOfMemory kind:
// Go does not surface allocation failure as an ordinary error, so the
// condition a client actually hits is a manifest exceeding MaxManifestSize.
var ErrResourceLimit = errors.New("manifest exceeds size limit")
