package signing

import "github.com/numo-labs/zkclob-core/pkg/clobtypes"

// CheckLotSize requires qty to be a multiple of a non-zero lotSize. A zero
// qty passes this check.
func CheckLotSize(qty, lotSize *clobtypes.U256) error {
	if lotSize.IsZero() {
		return clobtypes.InvalidErrorf("lot size zero")
	}
	var rem clobtypes.U256
	rem.Mod(qty, lotSize)
	if !rem.IsZero() {
		return clobtypes.InvalidErrorf("qty not a multiple of lot size")
	}
	return nil
}
