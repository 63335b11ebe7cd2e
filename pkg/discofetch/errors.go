package discofetch

import "errors"

// ErrMissingColumns indicates the source workbook lacks one of the
// required identifying columns. This is a precondition failure: the
// run aborts before any network activity.
var ErrMissingColumns = errors.New("missing required columns")
