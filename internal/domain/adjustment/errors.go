package adjustment

import "errors"

var ErrAdjustmentRequestNotFound = errors.New("Adjustment request not found")
