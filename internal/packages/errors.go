package packages

import "errors"

var errMissingName = errors.New("missing required field \"name\"")
